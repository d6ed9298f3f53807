package main

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fitops/auditor/internal/api"
	"github.com/fitops/auditor/internal/metrics"
	"github.com/fitops/auditor/internal/repository"
	"github.com/fitops/auditor/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the audit HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("port", "p", "", "HTTP port (default 8080)")
	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func serve() {
	cfg := loadRules()

	dbPath := viper.GetString("db_path")
	log.WithField("path", dbPath).Info("Initializing database")
	db, err := repository.InitDB(dbPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to init DB")
	}
	defer db.Close()

	runRepo := repository.NewRunRepo(db)
	collector := metrics.NewCollector()
	auditSvc := service.NewService(cfg, runRepo, collector, viper.GetString("outputs_dir"))

	router := api.NewRouter(auditSvc, runRepo, collector)

	port := viper.GetString("port")
	log.WithField("port", port).Info("Membership auditor listening")
	log.Info("Endpoints:")
	log.Info("  POST   /api/v1/audits")
	log.Info("  GET    /api/v1/audits")
	log.Info("  GET    /api/v1/audits/{id}")
	log.Info("  GET    /api/v1/audits/{id}/report")
	log.Info("  GET    /api/v1/rules/categories")
	log.Info("  GET    /api/v1/dashboard")
	log.Info("  GET    /metrics")

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.WithError(err).Fatal("Server failed")
	}
}
