package service

import (
	"fmt"

	"parcelroute/internal/domain"
)

var (
	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = fmt.Errorf("%w: invalid trip id", domain.ErrValidation)

	// ErrInvalidTravelerID is returned when traveler ID is empty.
	ErrInvalidTravelerID = fmt.Errorf("%w: invalid traveler id", domain.ErrValidation)

	// ErrInvalidOrigin is returned when origin coordinates are out of range.
	ErrInvalidOrigin = fmt.Errorf("%w: invalid origin location", domain.ErrValidation)

	// ErrInvalidDestination is returned when destination coordinates are out of range.
	ErrInvalidDestination = fmt.Errorf("%w: invalid destination location", domain.ErrValidation)

	// ErrInvalidLocation is returned when a GPS fix is out of range.
	ErrInvalidLocation = fmt.Errorf("%w: invalid location", domain.ErrValidation)

	// ErrInvalidPackage is returned when package weight or dimensions are not positive.
	ErrInvalidPackage = fmt.Errorf("%w: invalid package details", domain.ErrValidation)

	// ErrInvalidBudget is returned when maxBudget is negative.
	ErrInvalidBudget = fmt.Errorf("%w: invalid max budget", domain.ErrValidation)

	// ErrInvalidCapacity is returned when a traveler declares non-positive capacity.
	ErrInvalidCapacity = fmt.Errorf("%w: invalid capacity", domain.ErrValidation)

	// ErrInvalidRoute is returned when a traveler route is empty or out of range.
	ErrInvalidRoute = fmt.Errorf("%w: invalid route", domain.ErrValidation)

	// ErrEmptyMessage is returned when a chat message body is blank.
	ErrEmptyMessage = fmt.Errorf("%w: message body is empty", domain.ErrValidation)

	// ErrInvalidFare is returned when a trip is created without a positive fare.
	ErrInvalidFare = fmt.Errorf("%w: fare must be positive", domain.ErrValidation)

	// ErrInvalidOutcome is returned when a dispute is resolved to anything
	// other than delivered or cancelled.
	ErrInvalidOutcome = fmt.Errorf("%w: outcome must be delivered or cancelled", domain.ErrValidation)

	// ErrInvalidDisputeType is returned when a dispute names an unknown type.
	ErrInvalidDisputeType = fmt.Errorf("%w: invalid dispute type", domain.ErrValidation)

	// ErrDisputeDescription is returned when a dispute description is too short.
	ErrDisputeDescription = fmt.Errorf("%w: dispute description must be at least 10 characters", domain.ErrValidation)

	// ErrInvalidEvidence is returned when evidence is not a list of http(s) URLs.
	ErrInvalidEvidence = fmt.Errorf("%w: evidence must be http or https urls", domain.ErrValidation)

	// ErrResolutionDetails is returned when a dispute is resolved without details.
	ErrResolutionDetails = fmt.Errorf("%w: resolution details are required", domain.ErrValidation)

	// ErrInvalidDisputeID is returned when dispute ID is empty.
	ErrInvalidDisputeID = fmt.Errorf("%w: invalid dispute id", domain.ErrValidation)

	// ErrInvalidUserID is returned when user ID is empty.
	ErrInvalidUserID = fmt.Errorf("%w: invalid user id", domain.ErrValidation)

	// ErrInvalidNotificationID is returned when notification ID is empty.
	ErrInvalidNotificationID = fmt.Errorf("%w: invalid notification id", domain.ErrValidation)

	// ErrMessageTooLong is returned when a chat message body exceeds the limit.
	ErrMessageTooLong = fmt.Errorf("%w: message body is too long", domain.ErrValidation)

	// ErrInvalidMessageID is returned when message ID is empty.
	ErrInvalidMessageID = fmt.Errorf("%w: invalid message id", domain.ErrValidation)

	// ErrInvalidPaymentID is returned when payment ID is empty.
	ErrInvalidPaymentID = fmt.Errorf("%w: invalid payment id", domain.ErrValidation)

	// ErrTripNotInTransit is returned when a GPS fix arrives for a trip that is not moving.
	ErrTripNotInTransit = fmt.Errorf("%w: trip is not in transit", domain.ErrState)

	// ErrInvalidTransition is returned when the trip state machine forbids a change.
	ErrInvalidTransition = fmt.Errorf("%w: transition not allowed", domain.ErrState)

	// ErrTravelerNotEligible is returned when a traveler can no longer take the package.
	ErrTravelerNotEligible = fmt.Errorf("%w: traveler cannot take this package", domain.ErrState)

	// ErrTravelerBusy is returned when another assignment holds the traveler lock.
	ErrTravelerBusy = fmt.Errorf("%w: traveler is being assigned elsewhere", domain.ErrState)

	// ErrEscrowNotHeld is returned when funds are settled twice or were never held.
	ErrEscrowNotHeld = fmt.Errorf("%w: escrow is not held", domain.ErrState)

	// ErrTravelerCarrying is returned when a traveler ends a journey with packages on board.
	ErrTravelerCarrying = fmt.Errorf("%w: traveler still carries packages", domain.ErrState)

	// ErrNotTripTraveler is returned when the caller is not the trip's traveler.
	ErrNotTripTraveler = fmt.Errorf("%w: only the assigned traveler may do this", domain.ErrForbidden)

	// ErrNotTripShipper is returned when the caller is not the trip's shipper.
	ErrNotTripShipper = fmt.Errorf("%w: only the shipper may do this", domain.ErrForbidden)

	// ErrNotTripParticipant is returned when the caller is neither shipper nor traveler.
	ErrNotTripParticipant = fmt.Errorf("%w: not a participant of this trip", domain.ErrForbidden)

	// ErrNotMessageSender is returned when deleting someone else's message.
	ErrNotMessageSender = fmt.Errorf("%w: only the sender may delete a message", domain.ErrForbidden)

	// ErrNotInboxOwner is returned when reading or marking another user's notifications.
	ErrNotInboxOwner = fmt.Errorf("%w: not your notification", domain.ErrForbidden)

	// ErrInvalidReceiver is returned when a message names a receiver outside the trip.
	ErrInvalidReceiver = fmt.Errorf("%w: receiver is not the other participant", domain.ErrValidation)

	// ErrAdminOnly is returned when a non-admin calls an admin operation.
	ErrAdminOnly = fmt.Errorf("%w: admin role required", domain.ErrForbidden)

	// ErrNotInRoom is returned when a real-time operation targets a room the connection has not joined.
	ErrNotInRoom = fmt.Errorf("%w: join the trip room first", domain.ErrState)
)
