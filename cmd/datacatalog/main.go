// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/mintproject/MINT-Data-Catalog/catalogapi"
	"github.com/mintproject/MINT-Data-Catalog/catalogdb"
	"github.com/mintproject/MINT-Data-Catalog/pkg/process"
)

var (
	rootCmd = &cobra.Command{
		Use:   "datacatalog",
		Short: "MINT Data Catalog server",
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the data catalog API server",
		RunE:  cmdRun,
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database to the latest schema version",
		RunE:  cmdMigrate,
	}
)

func init() {
	rootCmd.PersistentFlags().String("database-url", "", "URL to connect to the catalog database")
	rootCmd.PersistentFlags().String("endpoint", "localhost:7000", "server endpoint (IP + port)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	process.Execute(rootCmd)
}

func openDB(cmd *cobra.Command, log *zap.Logger, applicationName string) (*catalogdb.DB, error) {
	databaseURL := viper.GetString("database-url")
	if databaseURL == "" {
		return nil, errs.New("--database-url is required")
	}

	ctx, _ := process.Ctx(cmd)
	return catalogdb.Open(ctx, log.Named("db"), databaseURL, catalogdb.Config{
		ApplicationName: applicationName,
	})
}

func cmdRun(cmd *cobra.Command, args []string) (err error) {
	log, err := process.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := openDB(cmd, log, "datacatalog-api")
	if err != nil {
		return errs.New("error connecting to the catalog database: %+v", err)
	}
	defer func() {
		err = errs.Combine(err, db.Close())
	}()

	server, err := catalogapi.NewServer(log.Named("api"), db, catalogapi.HeaderAuth{}, viper.GetString("endpoint"))
	if err != nil {
		return err
	}

	log.Info("starting data catalog API server", zap.String("endpoint", server.Endpoint))
	return server.Run()
}

func cmdMigrate(cmd *cobra.Command, args []string) (err error) {
	log, err := process.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := openDB(cmd, log, "datacatalog-migration")
	if err != nil {
		return errs.New("error connecting to the catalog database: %+v", err)
	}
	defer func() {
		err = errs.Combine(err, db.Close())
	}()

	ctx, cancel := process.Ctx(cmd)
	defer cancel()

	return db.MigrateToLatest(ctx)
}
