package emulator

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/viant/durable/model"
	"github.com/viant/durable/service/workflow"
)

type function struct {
	name     string
	versions map[string]workflow.Handler
	latest   string
	aliases  map[string]string
}

type registry struct {
	mux       sync.RWMutex
	functions map[string]*function
}

func newRegistry() *registry {
	return &registry{functions: map[string]*function{}}
}

func (r *registry) register(name, version string, handler workflow.Handler) error {
	if handler == nil {
		return model.NewError(model.ErrInvalidInput, "register", "handler is required")
	}
	if version == "" || version == model.LatestQualifier {
		return model.NewError(model.ErrInvalidInput, "register", fmt.Sprintf("invalid version %q", version))
	}
	if err := (model.FunctionIdentifier{Name: name, Qualifier: version}).Validate(); err != nil {
		return err
	}
	r.mux.Lock()
	defer r.mux.Unlock()
	fn, ok := r.functions[name]
	if !ok {
		fn = &function{name: name, versions: map[string]workflow.Handler{}, aliases: map[string]string{}}
		r.functions[name] = fn
	}
	fn.versions[version] = handler
	fn.latest = version
	return nil
}

func (r *registry) alias(name, alias, version string) error {
	if _, err := strconv.Atoi(alias); err == nil || alias == model.LatestQualifier {
		return model.NewError(model.ErrInvalidInput, "alias", fmt.Sprintf("alias %q cannot be a version", alias))
	}
	if err := (model.FunctionIdentifier{Name: name, Qualifier: alias}).Validate(); err != nil {
		return err
	}
	r.mux.Lock()
	defer r.mux.Unlock()
	fn, ok := r.functions[name]
	if !ok {
		return model.NewError(model.ErrFunctionNotFound, "alias", name)
	}
	if _, ok = fn.versions[version]; !ok {
		return model.NewError(model.ErrFunctionNotFound, "alias", name+":"+version)
	}
	fn.aliases[alias] = version
	return nil
}

// resolve returns the handler and the concrete version a qualifier points at.
func (r *registry) resolve(identifier model.FunctionIdentifier) (workflow.Handler, string, error) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	fn, ok := r.functions[identifier.Name]
	if !ok {
		return nil, "", model.NewError(model.ErrFunctionNotFound, "start", identifier.String())
	}
	version := identifier.Qualifier
	switch {
	case version == "" || version == model.LatestQualifier:
		version = fn.latest
	case fn.aliases[version] != "":
		version = fn.aliases[version]
	}
	handler, ok := fn.versions[version]
	if !ok {
		return nil, "", model.NewError(model.ErrFunctionNotFound, "start", identifier.String())
	}
	return handler, version, nil
}
