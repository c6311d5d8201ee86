package worklog

import (
	"strings"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/core/common/validation"
)

type CreateRoomDTO struct {
	Name string `json:"name"`
}

func (d *CreateRoomDTO) Validate() *internal.AppError {
	d.Name = strings.TrimSpace(d.Name)
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(100)
	return v.Validate()
}

type JoinRoomDTO struct {
	RoomCode string `json:"room_code"`
}

func (d *JoinRoomDTO) Validate() *internal.AppError {
	d.RoomCode = NormalizeRoomCode(d.RoomCode)
	v := validation.NewValidator()
	v.Field("room_code", d.RoomCode).Required().Custom(func(interface{}) *internal.AppError {
		if len(d.RoomCode) != RoomCodeLength {
			return internal.NewValidationFieldError("room_code", "room_code must be 6 characters", internal.ErrCodeValidationFailed)
		}
		return nil
	})
	return v.Validate()
}

type CreateLogDTO struct {
	LogDate string  `json:"log_date"`
	LogTime *string `json:"log_time,omitempty"`
	Tasks   string  `json:"tasks"`
}

func (d CreateLogDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("log_date", d.LogDate).Required().Date()
	v.Field("log_time", d.LogTime).ClockTime()
	v.Field("tasks", d.Tasks).Required().MaxLength(5000)
	return v.Validate()
}

type RoomResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RoomCode  string    `json:"room_code"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type RoomsResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

func ToRoomResponse(r *Room) RoomResponse {
	return RoomResponse{
		ID:        r.ID,
		Name:      r.Name,
		RoomCode:  r.RoomCode,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}
}

func ToRoomsResponse(rows []*Room) RoomsResponse {
	out := RoomsResponse{Rooms: make([]RoomResponse, len(rows))}
	for i, r := range rows {
		out.Rooms[i] = ToRoomResponse(r)
	}
	return out
}

type LogResponse struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	UserID     string    `json:"user_id"`
	AuthorName *string   `json:"author_name"`
	LogDate    string    `json:"log_date"`
	LogTime    *string   `json:"log_time"`
	Tasks      string    `json:"tasks"`
	CreatedAt  time.Time `json:"created_at"`
}

type LogsResponse struct {
	Logs []LogResponse `json:"logs"`
}

func ToLogResponse(l *WorkLog) LogResponse {
	return LogResponse{
		ID:         l.ID,
		RoomID:     l.RoomID,
		UserID:     l.UserID,
		AuthorName: l.AuthorName,
		LogDate:    l.LogDate.Format(validation.DateLayout),
		LogTime:    l.LogTime,
		Tasks:      l.Tasks,
		CreatedAt:  l.CreatedAt,
	}
}

func ToLogsResponse(rows []*WorkLog) LogsResponse {
	out := LogsResponse{Logs: make([]LogResponse, len(rows))}
	for i, l := range rows {
		out.Logs[i] = ToLogResponse(l)
	}
	return out
}
