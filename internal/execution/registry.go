package execution

import (
	"fmt"

	"ditapack/pkg/models"
)

// Env is the execution context handed to every handler: where plan source
// paths resolve, where mutations are confined, the write policy, and the
// dry-run flag. Handlers receive it read-only.
type Env struct {
	Source *Sandbox
	Target *Sandbox
	Policy *MutationPolicy
	DryRun bool
}

// Handler applies one action type. Handlers re-validate their parameters
// defensively even though plan validation already ran: a handler trusts
// nothing it did not check itself.
type Handler interface {
	ID() string
	Execute(env *Env, action models.Action) models.ExecutionActionResult
}

// Registry maps each action type to its single handler. It is built once
// and never mutated afterwards; exactly one handler may serve a type.
type Registry struct {
	handlers map[models.ActionType]Handler
}

// NewRegistry builds the default registry covering the full closed action
// type set.
func NewRegistry() Registry {
	r := Registry{handlers: make(map[models.ActionType]Handler)}
	r.mustRegister(models.ActionCopyMap, &copyHandler{id: "fs.copy_map"})
	r.mustRegister(models.ActionCopyTopic, &copyHandler{id: "fs.copy_topic"})
	r.mustRegister(models.ActionCopyMedia, &copyHandler{id: "fs.copy_media"})
	r.mustRegister(models.ActionRenameMap, &renameMapHandler{})
	r.mustRegister(models.ActionDeleteFile, &deleteFileHandler{})
	r.mustRegister(models.ActionWrapMap, &wrapMapHandler{})
	r.mustRegister(models.ActionInjectTopicref, &injectTopicrefHandler{})
	r.mustRegister(models.ActionExtractGlossary, &extractGlossaryHandler{})
	return r
}

func (r *Registry) mustRegister(t models.ActionType, h Handler) {
	if _, dup := r.handlers[t]; dup {
		panic(fmt.Sprintf("handler for %s registered twice", t))
	}
	r.handlers[t] = h
}

// Resolve returns the handler for t, or false when none is registered.
func (r Registry) Resolve(t models.ActionType) (Handler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}
