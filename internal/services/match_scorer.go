package services

import (
	"math/rand"
	"strings"

	"sahay/internal/models"
)

// Веса формулы совместимости
const (
	subjectWeight  = 25
	gradeWeight    = 10
	timeSlotWeight = 10
)

// Score считает совместимость двух профилей:
// 25 за каждый слабый предмет A, сильный у B, и наоборот,
// плюс 10 за одинаковый класс и 10 за одинаковое время.
// Теги сравниваются без учета регистра, пустые значения не учитываются
func Score(a, b *models.Profile) int {
	score := subjectWeight*overlap(a.Weak(), b.Strong()) +
		subjectWeight*overlap(b.Weak(), a.Strong())
	if a.Grade != "" && strings.EqualFold(strings.TrimSpace(a.Grade), strings.TrimSpace(b.Grade)) {
		score += gradeWeight
	}
	if a.TimeSlot != "" && a.TimeSlot == b.TimeSlot {
		score += timeSlotWeight
	}
	return score
}

func overlap(weak, strong []string) int {
	if len(weak) == 0 || len(strong) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(strong))
	for _, tag := range strong {
		set[strings.ToLower(tag)] = struct{}{}
	}
	n := 0
	for _, tag := range weak {
		if _, ok := set[strings.ToLower(tag)]; ok {
			n++
		}
	}
	return n
}

// Scorer выбирает лучшего кандидата из пула
type Scorer struct {
	// Threshold - минимальный балл; кандидаты ниже порога не предлагаются. 0 отключает порог
	Threshold int
	// Jitter добавляет к баллу случайное значение из [0, Jitter] при выборе. 0 - детерминированный выбор
	Jitter int
	// Rand используется для Jitter; nil означает глобальный источник
	Rand *rand.Rand
}

// Best возвращает кандидата со строго наибольшим баллом; при равенстве побеждает более ранний.
// Пустой пул или отсутствие кандидата выше порога дают (nil, 0)
func (s Scorer) Best(current *models.Profile, candidates []models.Profile) (*models.Profile, int) {
	var best *models.Profile
	bestScore, bestRank := 0, -1

	for i := range candidates {
		candidate := &candidates[i]
		if candidate.UserID == current.UserID {
			continue
		}
		score := Score(current, candidate)
		if score < s.Threshold {
			continue
		}
		rank := score + s.jitter()
		if rank > bestRank {
			best, bestScore, bestRank = candidate, score, rank
		}
	}

	if best == nil {
		return nil, 0
	}
	return best, bestScore
}

func (s Scorer) jitter() int {
	if s.Jitter <= 0 {
		return 0
	}
	if s.Rand != nil {
		return s.Rand.Intn(s.Jitter + 1)
	}
	return rand.Intn(s.Jitter + 1)
}
