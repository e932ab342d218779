/*
Copyright 2025 Payrail Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/payrail/payrail"
	"github.com/payrail/payrail/config"
	"github.com/payrail/payrail/database"
	"github.com/payrail/payrail/internal/notification"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Payrail represents the CLI application, encapsulating the root Cobra command.
type Payrail struct {
	cmd *cobra.Command
}

// payrailInstance holds the Payrail instance and its configuration so
// subcommands share one initialized service.
type payrailInstance struct {
	payrail *payrail.Payrail
	cnf     *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun sets up the configuration and initializes the Payrail instance
// before running any command.
func preRun(app *payrailInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("payrail.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newPayrail, err := setupPayrail(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.payrail = newPayrail
		app.cnf = cnf

		return nil
	}
}

// setupPayrail creates and initializes a new Payrail instance based on the
// provided configuration.
func setupPayrail(cfg *config.Configuration) (*payrail.Payrail, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newPayrail, err := payrail.NewPayrail(db)
	if err != nil {
		return nil, fmt.Errorf("error creating payrail: %v", err)
	}
	return newPayrail, nil
}

// NewCLI creates the command-line interface for the Payrail application.
func NewCLI() *Payrail {
	var configFile string
	p := &payrailInstance{}

	var rootCmd = &cobra.Command{
		Use:   "payrail",
		Short: "Multi-tenant payment pipeline",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./payrail.json", "Configuration file for payrail")

	rootCmd.PersistentPreRunE = preRun(p)

	rootCmd.AddCommand(serverCommands(p))
	rootCmd.AddCommand(workerCommands(p))
	rootCmd.AddCommand(migrateCommands(p))

	return &Payrail{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during execution.
func (w Payrail) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()
	cli := NewCLI()
	cli.executeCLI()
}
