// The server exposes the same record operations the local store offers,
// served over HTTP for installations that keep attendance on a shared
// database instead of a per-device file:
//
// POST   /api/attendance             # Mark attendance
// GET    /api/attendance             # List all records
// GET    /api/attendance/date/{date} # List records for a day
// DELETE /api/attendance             # Wipe all data
// GET    /api/members                # List the roster
// POST   /api/members                # Register a prefect
// PUT    /api/members/{id}           # Update a roster entry
// DELETE /api/members/{id}           # Remove a roster entry
// POST   /api/backup/import          # Import a snapshot
// GET    /api/backup/export          # Export a snapshot
// GET    /api/v1/health              # Health check

package api

import (
	attendanceAPI "prefectlog/internal/app/server/api/http/attendance"
	backupAPI "prefectlog/internal/app/server/api/http/backup"
	healthAPI "prefectlog/internal/app/server/api/http/health"
	memberAPI "prefectlog/internal/app/server/api/http/member"
	"prefectlog/internal/app/server/api/http/middleware"
	"prefectlog/internal/app/server/api/http/middleware/logger"
	"prefectlog/internal/infrastructure/storage"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

type Handlers struct {
	Health     *healthAPI.Handler
	Attendance *attendanceAPI.Handler
	Member     *memberAPI.Handler
	Backup     *backupAPI.Handler
}

// New builds a *chi.Mux with every operation registered through huma.Register.
func New(store storage.Store, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Prefectlog API", "1.0.0")

	API := humachi.New(mux, config)

	h := handlers(store, log)
	h.Health.SetupRoutes(API)
	h.Attendance.SetupRoutes(API)
	h.Member.SetupRoutes(API)
	h.Backup.SetupRoutes(API)

	return mux
}

func handlers(store storage.Store, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	attendanceHandler := attendanceAPI.NewHandler(store, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	memberHandler := memberAPI.NewHandler(store, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	backupHandler := backupAPI.NewHandler(store, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:     healthHandler,
		Attendance: attendanceHandler,
		Member:     memberHandler,
		Backup:     backupHandler,
	}
}
