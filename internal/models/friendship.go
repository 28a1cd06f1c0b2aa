package models

// Friendship materialises an accepted friend relation as a directed pair row.
// Acceptance writes both directions, so a single WHERE user_id = ? answers
// "who are my friends" without UNION queries.
type Friendship struct {
	BaseModel

	UserID   string `gorm:"type:uuid;not null;uniqueIndex:idx_friendship_pair" json:"user_id"`
	FriendID string `gorm:"type:uuid;not null;uniqueIndex:idx_friendship_pair" json:"friend_id"`

	User   *User `gorm:"foreignKey:UserID" json:"-"`
	Friend *User `gorm:"foreignKey:FriendID" json:"friend,omitempty"`
}
