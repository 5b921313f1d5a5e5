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

package session

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/QiangWu769/ltediag/pkg/command"
	"github.com/QiangWu769/ltediag/pkg/config"
)

const (
	DirOptionName    = "dir"
	PrefixOptionName = "prefix"
)

// NewCommand groups the subcommands talking to a running session via
// its API server.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Operate a running decoding session",
	}
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewFlushCommand())
	cmd.AddCommand(NewPersistCommand())
	return cmd
}

func NewStatusCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show session counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := command.NewApiClient(cfg)
			status, err := client.Status()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		},
	}
	return cmd
}

func NewFlushCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Flush buffered rows to the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := command.NewApiClient(cfg)
			return client.Flush()
		},
	}
	return cmd
}

func NewPersistCommand() *cobra.Command {
	var dir, prefix string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "persist",
		Short: "Flush and rotate the report file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := command.NewApiClient(cfg)
			file, err := client.Persist(dir, prefix)
			if err != nil {
				return err
			}
			cmd.Println(file)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, DirOptionName, "", "Directory to place the rotated report in")
	cmd.Flags().StringVar(&prefix, PrefixOptionName, "", "File prefix for the rotated report")
	return cmd
}
