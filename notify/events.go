package notify

import "github.com/google/uuid"

// EventType names a social-graph state transition.
type EventType string

const (
	EventFriendRequestCreated      EventType = "friend_request_created"
	EventFriendRequestAutoAccepted EventType = "friend_request_auto_accepted"
	EventFriendRequestAccepted     EventType = "friend_request_accepted"
	EventFriendRequestRejected     EventType = "friend_request_rejected"
	EventClanInviteCreated         EventType = "clan_invite_created"
	EventClanInviteAccepted        EventType = "clan_invite_accepted"
	EventClanInviteRejected        EventType = "clan_invite_rejected"
	EventClanMemberRemoved         EventType = "clan_member_removed"
	EventClanRoleUpdated           EventType = "clan_role_updated"
	EventClanOwnerTransferred      EventType = "clan_owner_transferred"
)

// Event is one engine state transition. ID is assigned once at the mutation
// site, so redelivery of the same Event collapses in the fan-out while
// distinct mutations never do. SubjectID is the other party to the mutation
// and the sole notification recipient; the actor is never notified.
type Event struct {
	ID        string
	Type      EventType
	ActorID   int64
	ActorName string
	SubjectID int64
	ClanID    int64
	ClanName  string
	Role      string
}

// NewEvent stamps a fresh event identity.
func NewEvent(t EventType, actorID, subjectID int64) Event {
	return Event{ID: uuid.NewString(), Type: t, ActorID: actorID, SubjectID: subjectID}
}

// Emitter is what the engines publish events through.
type Emitter interface {
	Emit(ev Event)
}

// NopEmitter drops all events. Useful in tests that only exercise state.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}
