package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// enumValue is a string flag restricted to a fixed set of values.
type enumValue struct {
	value   *string
	allowed []string
}

var _ pflag.Value = (*enumValue)(nil)

func newEnumValue(target *string, def string, allowed ...string) *enumValue {
	*target = def
	return &enumValue{value: target, allowed: allowed}
}

func (e *enumValue) String() string { return *e.value }

func (e *enumValue) Set(v string) error {
	for _, a := range e.allowed {
		if v == a {
			*e.value = v
			return nil
		}
	}
	return fmt.Errorf("must be one of: %s", strings.Join(e.allowed, ", "))
}

func (e *enumValue) Type() string { return "string" }

// addFormatFlag adds --format/-f accepting text or json.
func addFormatFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().VarP(newEnumValue(target, "text", "text", "json"), "format", "f", "Output format (text, json)")
}

// addServerFlags adds --host and --port bound to the server section.
func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 0, "Port to serve on (default 8000)")
	cmd.Flags().String("host", "", "Host to bind to (default localhost)")

	bindLocalFlag(cmd.Flags(), "server.port", "port")
	bindLocalFlag(cmd.Flags(), "server.host", "host")
}

func bindLocalFlag(flags *pflag.FlagSet, key, name string) {
	if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", name, err))
	}
}
