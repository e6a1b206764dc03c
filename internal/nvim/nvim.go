// Package nvim reloads buffers of a running Neovim after files change on
// disk.
package nvim

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/neovim/go-client/nvim"
)

// AddressEnv names the variable holding the Neovim server address.
const AddressEnv = "NVIM_LISTEN_ADDRESS"

// ErrNoServer is returned when no Neovim address is configured.
var ErrNoServer = errors.New(AddressEnv + " is not set")

// Manager is a connection to a Neovim instance.
type Manager struct {
	nvim *nvim.Nvim
}

// New connects to addr, or to $NVIM_LISTEN_ADDRESS when addr is empty.
func New(addr string) (*Manager, error) {
	if addr == "" {
		addr = os.Getenv(AddressEnv)
	}
	if addr == "" {
		return nil, ErrNoServer
	}
	v, err := nvim.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nvim at %s: %w", addr, err)
	}
	return &Manager{nvim: v}, nil
}

// Close disconnects from Neovim.
func (m *Manager) Close() {
	if m.nvim != nil {
		m.nvim.Close()
	}
}

// Refresh asks Neovim to reload each path that is open in a buffer.
// Buffers that are not loaded are left alone.
func (m *Manager) Refresh(paths []string, progressCb func(int)) (refreshed, failed []string) {
	for i, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			failed = append(failed, path)
			continue
		}
		b := m.nvim.NewBatch()
		b.Command(checktimeCommand(abs))
		if err := b.Execute(); err != nil {
			failed = append(failed, path)
		} else {
			refreshed = append(refreshed, path)
		}
		if progressCb != nil {
			progressCb(i + 1)
		}
	}
	return refreshed, failed
}

// checktimeCommand builds a command that reloads path only if a buffer for
// it exists.
func checktimeCommand(path string) string {
	quoted := "'" + strings.ReplaceAll(path, "'", "''") + "'"
	return fmt.Sprintf("if bufloaded(%s) | execute 'checktime ' . fnameescape(%s) | endif", quoted, quoted)
}
