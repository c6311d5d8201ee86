package document

import "time"

type Document struct {
	ID         string    `gorm:"column:id;primaryKey;type:uuid"`
	UserID     string    `gorm:"column:user_id;type:uuid;not null;index"`
	FileName   string    `gorm:"column:file_name;not null"`
	FileType   string    `gorm:"column:file_type"`
	FileURL    string    `gorm:"column:file_url;not null"`
	StorageKey string    `gorm:"column:storage_key;not null"`
	SizeBytes  int64     `gorm:"column:size_bytes"`
	UploadedBy string    `gorm:"column:uploaded_by;type:uuid;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;index"`
}

func (Document) TableName() string {
	return "documents"
}
