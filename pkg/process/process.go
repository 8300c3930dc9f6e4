// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

// Package process provides process-wide configuration, logging and
// lifetime management for the data catalog binaries.
package process

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
)

// Error is a process error class.
var Error = errs.Class("process")

// Execute runs a *cobra.Command and sets up catalog-wide process
// configuration: flags may also be provided through DCAT_* environment
// variables or an optional config file.
func Execute(cmd *cobra.Command) {
	cfgFile := flag.String("config", "", "config file")

	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	cobra.OnInitialize(func() {
		_ = viper.BindPFlags(cmd.Flags())
		viper.SetEnvPrefix("dcat")
		viper.AutomaticEnv()
		if *cfgFile != "" {
			viper.SetConfigFile(*cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				log.Printf("unable to read config file %q: %v", *cfgFile, err)
			}
		}
	})

	Must(cmd.Execute())
}

// Ctx returns a context that is cancelled when the process receives an
// interrupt or termination signal.
func Ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// Must checks for errors.
func Must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
