/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pivora/pivora/core/csvimport"
	"github.com/pivora/pivora/core/server"
	"github.com/pivora/pivora/demo"
)

var serveCmd = &cobra.Command{
	Use:   "serve [data files]",
	Short: "Run the pivot HTTP API.",
	Long: `Run the JSON API. CSV/TSV files given as arguments are loaded as
datasets at startup; more can be uploaded through /api/upload.`,
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging(cmd)

		srv, err := server.NewServer(server.Config{
			Addr:      getString(cmd, "addr"),
			PrefsPath: getString(cmd, "prefs"),
			Log:       log.StandardLogger(),
		})
		if err != nil {
			log.Fatalf("failed to start: %v", err)
		}

		if getFlag(cmd, "demo") {
			ds := srv.Datasets().Add("demo-orders", demo.Orders())
			log.WithFields(log.Fields{"dataset": ds.ID, "rows": len(ds.Records)}).Info("demo dataset loaded")
		}

		for _, path := range args {
			content, err := os.ReadFile(path)
			if err != nil {
				log.Fatalf("failed to read %s: %v", path, err)
			}
			imported, err := csvimport.Import(content, csvimport.ImportOptions{})
			if err != nil {
				log.Fatalf("failed to parse %s: %v", path, err)
			}
			ds := srv.Datasets().Add(filepath.Base(path), imported)
			log.WithFields(log.Fields{"dataset": ds.ID, "name": ds.Name, "rows": len(ds.Records)}).Info("dataset loaded")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := srv.ListenAndServe(ctx); err != nil {
			log.Fatalf("server error: %v", err)
		}
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "address to listen on")
	serveCmd.Flags().String("prefs", "pivora-prefs.json", "path of the saved-preferences file")
	serveCmd.Flags().Bool("demo", false, "load the bundled demo dataset at startup")
	rootCmd.AddCommand(serveCmd)
}
