package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/agent"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/platform"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/registry"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Chat with the market analysis agent",
	Long:  "Sends a prompt to the configured chat model, which may call the analysis tools before answering. Without --prompt, reads one prompt per line from stdin.",
	RunE:  runAgent,
}

var agentPrompt string

func init() {
	agentCmd.Flags().StringVarP(&agentPrompt, "prompt", "p", "", "Single prompt to answer")
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, _ []string) error {
	cfg, e, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	client := platform.Init(ctx, cfg.Provider)
	m, err := agent.NewModel(ctx, cfg, client)
	if err != nil {
		return fmt.Errorf("模型初始化失败: %w", err)
	}

	a := agent.New(m, registry.NewMarketRegistry(e),
		agent.WithSystemPrompt(cfg.Agent.SystemPrompt),
		agent.WithMaxSteps(cfg.Agent.MaxSteps),
		agent.WithLimiter(agent.NewLimiter(cfg.Concurrency)),
	)

	out := cmd.OutOrStdout()
	if agentPrompt != "" {
		res, err := a.Chat(ctx, agentPrompt)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, res.Answer)
		return err
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		prompt := strings.TrimSpace(scanner.Text())
		if prompt == "" {
			fmt.Fprint(out, "> ")
			continue
		}
		res, err := a.Chat(ctx, prompt)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n> ", err)
			continue
		}
		fmt.Fprintf(out, "%s\n> ", res.Answer)
	}
	return scanner.Err()
}
