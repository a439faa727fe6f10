package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"securetask.org/internal/admin"
	"securetask.org/internal/audit"
	"securetask.org/internal/httpapi"
	"securetask.org/internal/obs"
	"securetask.org/internal/org"
	"securetask.org/internal/store/memory"
	"securetask.org/internal/store/pg"
	"securetask.org/internal/task"
	"securetask.org/internal/user"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	if os.Getenv("SECURETASK_AUTH_SECRET") == "" {
		log.Fatal("SECURETASK_AUTH_SECRET is required")
	}

	addr := os.Getenv("SECURETASK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	var (
		orgStore   org.Store
		userStore  user.Store
		taskStore  task.Store
		auditStore audit.Store
		ready      httpapi.ReadyProbe
		closeStore func()
	)
	if dsn := os.Getenv("SECURETASK_DB_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		orgStore = pgStore.Orgs()
		userStore = pgStore.Users()
		taskStore = pgStore.Tasks()
		auditStore = pgStore.Audit()
		ready = httpapi.ReadyProbe{Ping: pgStore.Ping}
		closeStore = func() { _ = pgStore.Close() }
	} else {
		log.Print("SECURETASK_DB_DSN not set, using in-memory store")
		mem := memory.New()
		orgStore = mem.Orgs()
		userStore = mem.Users()
		taskStore = mem.Tasks()
		auditStore = mem.Audit()
		closeStore = func() {}
	}

	orgSvc, err := org.NewService(orgStore)
	if err != nil {
		log.Fatalf("org service: %v", err)
	}
	taskSvc, err := task.NewService(taskStore)
	if err != nil {
		log.Fatalf("task service: %v", err)
	}
	recorder, err := audit.NewRecorder(auditStore)
	if err != nil {
		log.Fatalf("audit recorder: %v", err)
	}
	userSvc, err := user.NewService(userStore, orgStore, recorder)
	if err != nil {
		log.Fatalf("user service: %v", err)
	}
	adminSvc, err := admin.NewService(userStore, taskStore, orgSvc)
	if err != nil {
		log.Fatalf("admin service: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Version:      version,
		Ready:        ready,
		Users:        userSvc,
		Tasks:        taskSvc,
		Orgs:         orgSvc,
		Admin:        adminSvc,
		Recorder:     recorder,
		ExtraOrigins: splitList(os.Getenv("SECURETASK_CORS_ORIGINS")),
		RateBurst:    envInt("SECURETASK_RATE_BURST"),
		RatePerSec:   envInt("SECURETASK_RATE_PER_SEC"),
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting securetask-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	closeStore()
	log.Println("Stopped")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envInt(name string) int {
	n, _ := strconv.Atoi(os.Getenv(name))
	return n
}
