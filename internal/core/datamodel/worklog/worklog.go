package worklog

import "time"

type ChatRoom struct {
	ID        string    `gorm:"column:id;primaryKey;type:uuid"`
	Name      string    `gorm:"column:name;not null"`
	RoomCode  string    `gorm:"column:room_code;uniqueIndex;not null"`
	CreatedBy string    `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (ChatRoom) TableName() string {
	return "chat_rooms"
}

type RoomMember struct {
	RoomID   string    `gorm:"column:room_id;type:uuid;primaryKey"`
	UserID   string    `gorm:"column:user_id;type:uuid;primaryKey"`
	JoinedAt time.Time `gorm:"column:joined_at"`
}

func (RoomMember) TableName() string {
	return "room_members"
}

type WorkLog struct {
	ID        string    `gorm:"column:id;primaryKey;type:uuid"`
	RoomID    string    `gorm:"column:room_id;type:uuid;not null;index"`
	UserID    string    `gorm:"column:user_id;type:uuid;not null"`
	LogDate   time.Time `gorm:"column:log_date;type:date;not null"`
	LogTime   *string   `gorm:"column:log_time"`
	Tasks     string    `gorm:"column:tasks;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index"`
}

func (WorkLog) TableName() string {
	return "work_logs"
}
