/*
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

package start

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/QiangWu769/ltediag/pkg/config"
	"github.com/QiangWu769/ltediag/pkg/log"
	"github.com/QiangWu769/ltediag/pkg/srv/session"
)

const (
	AddressOptionName = "address"
	PortOptionName    = "port"
	ReportOptionName  = "report"
)

// NewCommand creates the command that runs a decoding session against
// the bridge until interrupted.
func NewCommand() *cobra.Command {
	var address, report string
	var port int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a decoding session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				cfg.BridgeAddress = address
			}
			if port != 0 {
				cfg.BridgePort = port
			}
			if report != "" {
				cfg.ReportPath = report
			}
			if cfg.LogFile != "" {
				log.InitFile(cfg.LogFile, cfg.LogLevel)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := session.NewSession(ctx, cfg)
			if err != nil {
				return err
			}

			api, err := session.NewApiServer(ctx, cfg, s)
			if err != nil {
				return err
			}
			go func() {
				if apiErr := api.Run(); apiErr != nil {
					log.Error("API server stopped: %s", apiErr)
				}
			}()

			return s.Run()
		},
	}
	cmd.Flags().StringVar(&address, AddressOptionName, "", fmt.Sprintf("Bridge address to connect to. E.g. %s", config.DefaultBridgeAddress))
	cmd.Flags().IntVar(&port, PortOptionName, 0, fmt.Sprintf("Bridge port to connect to. E.g. %d", config.DefaultBridgePort))
	cmd.Flags().StringVar(&report, ReportOptionName, "", fmt.Sprintf("Report file path. E.g. %s", config.DefaultReportPath))

	return cmd
}
