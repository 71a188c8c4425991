package main

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/spf13/pflag"

	"sahay/internal/models"
	"sahay/internal/repository"
	"sahay/internal/services"
	"sahay/pkg/database"
)

var (
	subjects = []string{"Math", "Physics", "Chemistry", "Biology", "English", "History", "Geography", "Computer Science"}
	grades   = []string{"6", "7", "8", "9", "10"}
	slots    = []models.TimeSlot{models.TimeSlotMorning, models.TimeSlotAfternoon, models.TimeSlotEvening, models.TimeSlotWeekend}
)

func main() {
	dbPath := pflag.String("db", "/tmp/sahay.db", "путь к базе SQLite (:memory: для проверки)")
	students := pflag.Int("students", 10, "сколько учеников создать")
	teachers := pflag.Int("teachers", 4, "сколько учителей создать")
	password := pflag.String("password", "password123", "пароль для всех демо-пользователей")
	seed := pflag.Int64("seed", 1, "зерно генератора для воспроизводимых данных")
	pflag.Parse()

	var (
		db  *database.Database
		err error
	)
	if *dbPath == ":memory:" {
		db, err = database.NewInMemory("seed")
	} else {
		db, err = database.NewDatabase(*dbPath)
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	authService := services.NewAuthService(repository.NewUserRepository(db.DB), "seed", 0)
	profileService := services.NewProfileService(repository.NewProfileRepository(db.DB))
	rnd := rand.New(rand.NewSource(*seed))

	create := func(role models.UserRole, n int) {
		for i := 1; i <= n; i++ {
			name := fmt.Sprintf("%s %d", role, i)
			email := fmt.Sprintf("%s%d@sahay.local", role, i)
			result, err := authService.Register(name, email, *password)
			if err != nil {
				log.Printf("Skipping %s: %v", email, err)
				continue
			}

			input := services.ProfileInput{
				Role:           role,
				Grade:          grades[rnd.Intn(len(grades))],
				TimeSlot:       slots[rnd.Intn(len(slots))],
				StrongSubjects: pick(rnd, 2),
			}
			if role == models.RoleStudent {
				input.WeakSubjects = pick(rnd, 2)
			} else {
				input.Teaches = pick(rnd, 3)
			}

			actor := services.Actor{UserID: result.User.ID, Name: name}
			if _, err := profileService.SaveProfile(actor, input); err != nil {
				log.Printf("Failed to save profile for %s: %v", email, err)
				continue
			}
			log.Printf("Created %s (%s)", email, role)
		}
	}

	create(models.RoleStudent, *students)
	create(models.RoleTeacher, *teachers)
	log.Printf("Seed complete: %d students, %d teachers, password %q", *students, *teachers, *password)
}

// pick возвращает n разных предметов
func pick(rnd *rand.Rand, n int) []string {
	perm := rnd.Perm(len(subjects))
	out := make([]string, 0, n)
	for _, i := range perm[:n] {
		out = append(out, subjects[i])
	}
	return out
}
