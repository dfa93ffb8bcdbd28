// Package core provides the module system foundation for telegate.
// Modules register themselves from init() and are loaded, provisioned,
// and started by the App in a fixed lifecycle order.
package core

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// ModuleID identifies a module, namespaced by dots (e.g. "channel.telegram").
type ModuleID string

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}

// Module is the minimal interface every module implements.
type Module interface {
	ModuleInfo() ModuleInfo
}

// Configurable is implemented by modules that accept YAML configuration.
// Called after instantiation and before Provision().
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner is implemented by modules that need setup after configuration.
// Modules register the services they provide here, so that other modules
// can resolve them during Start().
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator is implemented by modules that can verify their configuration.
// Called after Provision(). Must be read-only.
type Validator interface {
	Validate() error
}

// Starter is implemented by modules that start background work. Called after
// every module has been provisioned and validated, in module load order.
type Starter interface {
	Start() error
}

// Stopper is implemented by modules that need to release resources.
// Called during shutdown in reverse order of Start().
type Stopper interface {
	Stop(ctx context.Context) error
}

var (
	registry   = make(map[string]ModuleInfo)
	registryMu sync.RWMutex
)

// RegisterModule registers a module under its ModuleInfo ID. It panics on
// duplicate or invalid registration; intended for init() use only.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if info.ID == "" {
		panic("core: module ID must not be empty")
	}
	if info.New == nil {
		panic(fmt.Sprintf("core: module %s: New must not be nil", info.ID))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	id := string(info.ID)
	if _, exists := registry[id]; exists {
		panic(fmt.Sprintf("core: module already registered: %s", id))
	}
	registry[id] = info
}

// GetModule returns the ModuleInfo for the given ID.
func GetModule(id string) (ModuleInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := registry[id]
	return info, ok
}

// GetModules returns all registered modules sorted by ID.
func GetModules() []ModuleInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ModuleInfo, 0, len(registry))
	for _, info := range registry {
		result = append(result, info)
	}
	slices.SortFunc(result, func(a, b ModuleInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}
