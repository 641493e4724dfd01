package main

import (
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/habitquest/backend/internal/auth"
	"github.com/habitquest/backend/internal/creature"
	"github.com/habitquest/backend/internal/database"
	"github.com/habitquest/backend/internal/generator"
	"github.com/habitquest/backend/internal/habits"
	"github.com/habitquest/backend/internal/metrics"
	"github.com/habitquest/backend/internal/quests"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Services
	creatureService := creature.NewService(creature.NewStore(db))
	habitService := habits.NewService(habits.NewStore(db), creatureService)
	questService := quests.NewService(quests.NewStore(db), creatureService,
		rand.New(rand.NewSource(time.Now().UnixNano())))

	// Handlers
	authHandler := auth.NewHandler(db, creatureService)
	habitHandler := habits.NewHandler(habitService)
	questHandler := quests.NewHandler(questService)
	creatureHandler := creature.NewHandler(creatureService)

	// Setup router
	r := mux.NewRouter()
	r.Use(metrics.Middleware)
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(auth.Middleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")

	protected.HandleFunc("/habits", habitHandler.CreateHabit).Methods("POST")
	protected.HandleFunc("/habits", habitHandler.ListHabits).Methods("GET")
	protected.HandleFunc("/habits/{id}/frequency", habitHandler.UpdateFrequency).Methods("PUT")
	protected.HandleFunc("/habits/{id}/streak", habitHandler.StreakStatus).Methods("GET")
	protected.HandleFunc("/habits/{id}/complete", habitHandler.CompleteHabit).Methods("POST")
	protected.HandleFunc("/habits/{id}/history", habitHandler.CompletionHistory).Methods("GET")

	protected.HandleFunc("/quests/daily", questHandler.GetDailyQuest).Methods("GET")
	protected.HandleFunc("/quests/{id}/activate", questHandler.ActivateQuest).Methods("POST")
	protected.HandleFunc("/quests/{id}/answer", questHandler.AnswerQuestion).Methods("POST")
	protected.HandleFunc("/quests/{id}/progress", questHandler.GetProgress).Methods("GET")

	protected.HandleFunc("/creature", creatureHandler.GetCreature).Methods("GET")
	protected.HandleFunc("/creature/stats/spend", creatureHandler.SpendPoints).Methods("POST")

	// Dev-only destructive and generation tools
	if os.Getenv("DEV_TOOLS_ENABLED") == "true" {
		gen := generator.NewGenerator()
		genHandler := generator.NewHandler(gen, questService)
		protected.HandleFunc("/dev/quests/reset", questHandler.ResetDailyQuest).Methods("POST")
		protected.HandleFunc("/dev/templates/generate", genHandler.GenerateTemplates).Methods("POST")
		log.Println("Dev tools enabled: quest reset and template generation routes registered")
	}

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Prometheus scrape endpoint
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
