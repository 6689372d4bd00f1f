package cmd

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"sheet-reconciler/core/mapping"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"Generic", errors.New("boom"), exitFailure},
		{"InvalidConfig", fmt.Errorf("%w: mapper.yml has 2 error(s)", mapping.ErrInvalidConfig), exitConfig},
		{"MissingConfig", fmt.Errorf("load: %w", mapping.ErrConfigNotFound), exitConfig},
		{"Unresolved", fmt.Errorf("%w: 3 record(s) could not be committed", errUnresolved), exitUnresolved},
		{"Canceled", fmt.Errorf("import failed: %w", context.Canceled), exitCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	var names []string
	for _, c := range RootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"validate", "import", "export", "start"})
	assert.NotNil(t, RootCmd.PersistentFlags().ShorthandLookup("c"))
}
