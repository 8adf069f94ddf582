// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/bloomcart/marketing-core/pkg/contacts"
	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/notify"
	"github.com/bloomcart/marketing-core/pkg/persistence"
	"github.com/bloomcart/marketing-core/pkg/registry"
	"github.com/bloomcart/marketing-core/pkg/steps/condition"
	contactstep "github.com/bloomcart/marketing-core/pkg/steps/contact"
	"github.com/bloomcart/marketing-core/pkg/steps/email"
	"github.com/bloomcart/marketing-core/pkg/steps/note"
	"github.com/bloomcart/marketing-core/pkg/steps/sms"
	"github.com/bloomcart/marketing-core/pkg/steps/socialpost"
	"github.com/bloomcart/marketing-core/pkg/steps/wait"
	"github.com/bloomcart/marketing-core/pkg/steps/webhook"
)

// RegistryDeps are the collaborators step executors close over.
type RegistryDeps struct {
	Contacts    contacts.Store
	EmailSender notify.EmailSender
	SMSSender   notify.SMSSender
	Posts       persistence.PostRepository
	Notes       persistence.NoteRepository
}

// NewRegistry builds the step registry with every native step type.
func NewRegistry(logger *slog.Logger, deps RegistryDeps) *registry.Registry {
	reg := registry.NewRegistry(logger)

	register(reg, &registry.RegisteredStep{
		Type:        models.StepSendEmail,
		Name:        "Send Email",
		Description: "Sends a templated email to the execution's contact",
		Schema:      email.Schema,
	}, func(config map[string]any) (models.StepExecutor, error) {
		return email.NewExecutor(config, deps.EmailSender)
	})

	register(reg, &registry.RegisteredStep{
		Type:        models.StepSendSMS,
		Name:        "Send SMS",
		Description: "Sends a text message to the execution's contact",
		Schema:      sms.Schema,
	}, func(config map[string]any) (models.StepExecutor, error) {
		return sms.NewExecutor(config, deps.SMSSender)
	})

	register(reg, &registry.RegisteredStep{
		Type:        models.StepWait,
		Name:        "Wait",
		Description: "Suspends the execution for a number of minutes",
		Schema:      wait.Schema,
	}, func(config map[string]any) (models.StepExecutor, error) {
		return wait.NewExecutor(config)
	})

	register(reg, &registry.RegisteredStep{
		Type:        models.StepCondition,
		Name:        "Condition",
		Description: "Stops the execution when a predicate over the context is false",
		Schema:      condition.Schema,
	}, func(config map[string]any) (models.StepExecutor, error) {
		return condition.NewExecutor(config)
	})

	register(reg, &registry.RegisteredStep{
		Type:        models.StepUpdateContact,
		Name:        "Update Contact",
		Description: "Merges attribute values into the contact record",
		Schema:      contactstep.UpdateSchema,
	}, func(config map[string]any) (models.StepExecutor, error) {
		return contactstep.NewUpdateExecutor(config, deps.Contacts)
	})

	register(reg, &registry.RegisteredStep{
		Type:        models.StepAddTag,
		Name:        "Add Tag",
		Description: "Adds a tag to the contact",
		Schema:      contactstep.TagSchema,
	}, func(config map[string]any) (models.StepExecutor, error) {
		return contactstep.NewAddTagExecutor(config, deps.Contacts)
	})

	register(reg, &registry.RegisteredStep{
		Type:        models.StepRemoveTag,
		Name:        "Remove Tag",
		Description: "Removes a tag from the contact",
		Schema:      contactstep.TagSchema,
	}, func(config map[string]any) (models.StepExecutor, error) {
		return contactstep.NewRemoveTagExecutor(config, deps.Contacts)
	})

	register(reg, &registry.RegisteredStep{
		Type:        models.StepWebhook,
		Name:        "Webhook",
		Description: "Sends a JSON POST to an external endpoint",
		Schema:      webhook.Schema,
	}, func(config map[string]any) (models.StepExecutor, error) {
		return webhook.NewExecutor(config)
	})

	register(reg, &registry.RegisteredStep{
		Type:        models.StepSocialPost,
		Name:        "Social Post",
		Description: "Queues a social post for scheduled publication",
		Schema:      socialpost.Schema,
	}, func(config map[string]any) (models.StepExecutor, error) {
		return socialpost.NewExecutor(config, deps.Posts, nil)
	})

	register(reg, &registry.RegisteredStep{
		Type:        models.StepInternalNote,
		Name:        "Internal Note",
		Description: "Appends an internal note to the contact's history",
		Schema:      note.Schema,
	}, func(config map[string]any) (models.StepExecutor, error) {
		return note.NewExecutor(config, deps.Notes)
	})

	return reg
}

func register(reg *registry.Registry, step *registry.RegisteredStep, factory registry.ExecutorFactory) {
	err := reg.Register(step, factory)
	if err != nil {
		panic(err)
	}
}
