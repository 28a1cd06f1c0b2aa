package models

// FriendRequest statuses. Declined is terminal; accepted requests have a
// matching Friendship pair.
const (
	FriendRequestPending  = "pending"
	FriendRequestAccepted = "accepted"
	FriendRequestDeclined = "declined"
)

// FriendRequest is a directed invitation from sender to receiver. At most one
// request may exist per unordered pair; the service checks both orderings and
// the unique index backstops the directed one.
type FriendRequest struct {
	BaseModel

	SenderID   string `gorm:"type:uuid;not null;uniqueIndex:idx_friend_request_pair" json:"sender_id"`
	ReceiverID string `gorm:"type:uuid;not null;uniqueIndex:idx_friend_request_pair" json:"receiver_id"`
	Status     string `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`

	Sender   *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver *User `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}
