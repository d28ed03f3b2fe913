package system

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/julianstephens/healthchain/internal/cli"
	"github.com/julianstephens/healthchain/internal/storage"
)

type DebugCmd struct {
	DBPath DebugDBPathCmd `cmd:"" help:"Show database path."`
	Keys   DebugKeysCmd   `cmd:"" help:"List stored record keys."`
	Dump   DebugDumpCmd   `cmd:"" help:"Dump a stored record as JSON."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	return printJSON(map[string]string{
		"path":    ctx.Store.GetConfigPath(),
		"backend": string(cli.BackendFor(ctx.Store.GetConfigPath())),
	})
}

type DebugKeysCmd struct{}

func (cmd *DebugKeysCmd) Run(ctx *cli.Context) error {
	keys, err := ctx.Store.Keys()
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}

type DebugDumpCmd struct {
	Key string `arg:"" help:"Record key to dump (e.g. healthMetrics, wallet)."`
}

func (cmd *DebugDumpCmd) Run(ctx *cli.Context) error {
	var record any
	found, err := storage.Fetch(ctx.Store, cmd.Key, &record)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cmd.Key, err)
	}
	if !found {
		return fmt.Errorf("no record stored under key: %s", cmd.Key)
	}
	return printJSON(record)
}

func printJSON(v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(jsonBytes))
	return nil
}
