package worklog

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	worklogDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/worklog"
)

const (
	RoomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateRoomCode returns RoomCodeLength random uppercase alphanumerics.
func GenerateRoomCode() (string, error) {
	var b strings.Builder
	b.Grow(RoomCodeLength)
	max := big.NewInt(int64(len(roomCodeAlphabet)))
	for i := 0; i < RoomCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		b.WriteByte(roomCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeRoomCode trims and uppercases a code typed by a user.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type Room struct {
	ID        string
	Name      string
	RoomCode  string
	CreatedBy string
	CreatedAt time.Time
}

type WorkLog struct {
	ID      string
	RoomID  string
	UserID  string
	LogDate time.Time
	LogTime *string
	Tasks   string
	// AuthorName is filled from the employee directory when available.
	AuthorName *string
	CreatedAt  time.Time
}

func RoomToDataModel(r *Room) *worklogDatamodel.ChatRoom {
	return &worklogDatamodel.ChatRoom{
		ID:        r.ID,
		Name:      r.Name,
		RoomCode:  r.RoomCode,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}
}

func RoomFromDataModel(m *worklogDatamodel.ChatRoom) *Room {
	return &Room{
		ID:        m.ID,
		Name:      m.Name,
		RoomCode:  m.RoomCode,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
	}
}

func RoomsFromDataModel(rows []*worklogDatamodel.ChatRoom) []*Room {
	out := make([]*Room, len(rows))
	for i, m := range rows {
		out[i] = RoomFromDataModel(m)
	}
	return out
}

func LogToDataModel(l *WorkLog) *worklogDatamodel.WorkLog {
	return &worklogDatamodel.WorkLog{
		ID:        l.ID,
		RoomID:    l.RoomID,
		UserID:    l.UserID,
		LogDate:   l.LogDate,
		LogTime:   l.LogTime,
		Tasks:     l.Tasks,
		CreatedAt: l.CreatedAt,
	}
}

func LogFromDataModel(m *worklogDatamodel.WorkLog) *WorkLog {
	return &WorkLog{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		LogDate:   m.LogDate,
		LogTime:   m.LogTime,
		Tasks:     m.Tasks,
		CreatedAt: m.CreatedAt,
	}
}

func LogsFromDataModel(rows []*worklogDatamodel.WorkLog) []*WorkLog {
	out := make([]*WorkLog, len(rows))
	for i, m := range rows {
		out[i] = LogFromDataModel(m)
	}
	return out
}
