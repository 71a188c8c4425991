package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserRole определяет роль участника в подборе пар
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
)

// ProfileStatus определяет состояние профиля в подборе
type ProfileStatus string

const (
	StatusWaiting    ProfileStatus = "waiting"
	StatusConfirming ProfileStatus = "confirming"
	StatusMatched    ProfileStatus = "matched"
	StatusBusy       ProfileStatus = "busy" // сессия завершена, идет оценка и квиз
)

// TimeSlot определяет удобное время занятий
type TimeSlot string

const (
	TimeSlotMorning   TimeSlot = "morning"
	TimeSlotAfternoon TimeSlot = "afternoon"
	TimeSlotEvening   TimeSlot = "evening"
	TimeSlotWeekend   TimeSlot = "weekend"
)

// Valid проверяет, что слот входит в фиксированный список
func (t TimeSlot) Valid() bool {
	switch t {
	case TimeSlotMorning, TimeSlotAfternoon, TimeSlotEvening, TimeSlotWeekend:
		return true
	}
	return false
}

// Profile представляет учебный профиль пользователя
type Profile struct {
	ID             uuid.UUID     `json:"id" gorm:"type:text;primaryKey"`
	UserID         uuid.UUID     `json:"user_id" gorm:"type:text;uniqueIndex;not null"`
	Role           UserRole      `json:"role" gorm:"type:text;not null"`
	Grade          string        `json:"grade" gorm:"type:text"`
	TimeSlot       TimeSlot      `json:"time_slot" gorm:"type:text"`
	StrongSubjects string        `json:"strong_subjects" gorm:"type:text"` // теги через запятую
	WeakSubjects   string        `json:"weak_subjects" gorm:"type:text"`   // только для учеников
	Teaches        string        `json:"teaches" gorm:"type:text"`         // только для учителей
	Status         ProfileStatus `json:"status" gorm:"type:text;default:'waiting';index"`
	MatchID        *string       `json:"match_id,omitempty" gorm:"type:text;index"`
	Accepted       bool          `json:"accepted" gorm:"default:false"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	// Связи
	User User `json:"user" gorm:"foreignKey:UserID"`
}

// Strong возвращает сильные предметы; у учителя это то, что он преподает
func (p *Profile) Strong() []string {
	if tags := SplitTags(p.Teaches); len(tags) > 0 {
		return tags
	}
	return SplitTags(p.StrongSubjects)
}

// Weak возвращает слабые предметы
func (p *Profile) Weak() []string {
	return SplitTags(p.WeakSubjects)
}

// Complete сообщает, заполнен ли профиль достаточно для подбора
func (p *Profile) Complete() bool {
	if p.Grade == "" || !p.TimeSlot.Valid() {
		return false
	}
	switch p.Role {
	case RoleStudent:
		return len(p.Weak()) > 0
	case RoleTeacher:
		return len(p.Strong()) > 0
	}
	return false
}

// SplitTags разбивает список через запятую, убирая пробелы, пустые значения и дубликаты
func SplitTags(raw string) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// JoinTags собирает теги обратно в строку для хранения
func JoinTags(tags []string) string {
	return strings.Join(SplitTags(strings.Join(tags, ",")), ",")
}
