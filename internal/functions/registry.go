package functions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/sirupsen/logrus"
)

type Tier int

const (
	TierCustomer Tier = iota
	TierAdmin
)

const (
	adminRequiredMessage = "Admin access required. This function is only available to authorized administrators."
	internalFailureText  = "The store could not complete this request right now. Apologise and ask the customer to try again shortly."
)

// Handler runs one function for the caller. A returned error is folded into
// a failed FunctionResult by the registry.
type Handler func(ctx context.Context, caller domain.Caller, args Args) (domain.FunctionResult, error)

type Function struct {
	Name        string
	Aliases     []string
	Tier        Tier
	Usage       string
	Description string
	Handler     Handler
}

// Authorizer decides whether a caller may run admin-tier functions.
type Authorizer interface {
	IsAdmin(ctx context.Context, caller domain.Caller) bool
}

type Registry struct {
	functions []*Function
	byName    map[string]*Function
	auth      Authorizer
	log       *logrus.Logger
}

func NewRegistry(auth Authorizer, logger *logrus.Logger) *Registry {
	return &Registry{
		byName: map[string]*Function{},
		auth:   auth,
		log:    logger,
	}
}

// Register adds functions under their canonical name and every alias.
func (r *Registry) Register(fns ...Function) error {
	for i := range fns {
		fn := fns[i]
		if fn.Handler == nil {
			return fmt.Errorf("function %q has no handler", fn.Name)
		}
		names := append([]string{fn.Name}, fn.Aliases...)
		for _, name := range names {
			name = strings.ToLower(name)
			if _, exists := r.byName[name]; exists {
				return fmt.Errorf("function name %q registered twice", name)
			}
		}
		for _, name := range names {
			r.byName[strings.ToLower(name)] = &fn
		}
		r.functions = append(r.functions, &fn)
	}
	return nil
}

func (r *Registry) Lookup(name string) (*Function, bool) {
	fn, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return fn, ok
}

func (r *Registry) IsAdmin(ctx context.Context, caller domain.Caller) bool {
	return r.auth != nil && r.auth.IsAdmin(ctx, caller)
}

// Execute never returns an error: every failure is a result the next
// generation round can talk about.
func (r *Registry) Execute(ctx context.Context, inv Invocation, caller domain.Caller) domain.FunctionResult {
	fn, ok := r.Lookup(inv.Name)
	if !ok {
		r.log.Warnf("Registry: Unknown function '%s' requested by %s", inv.Name, caller.Phone)
		return domain.Failed(domain.KindNotFound, "Unknown function: "+inv.Name)
	}
	if fn.Tier == TierAdmin && !r.IsAdmin(ctx, caller) {
		r.log.Warnf("Registry: Denied admin function '%s' for %s", fn.Name, caller.Phone)
		return domain.Failed(domain.KindAuthorization, adminRequiredMessage)
	}

	result, err := fn.Handler(ctx, caller, inv.Args)
	if err != nil {
		return r.fold(fn.Name, caller, err)
	}
	r.log.Debugf("Registry: %s for %s succeeded=%t", fn.Name, caller.Phone, result.Success)
	return result
}

func (r *Registry) fold(name string, caller domain.Caller, err error) domain.FunctionResult {
	kind := domain.KindOf(err)
	if !domain.Expected(err) {
		r.log.Errorf("Registry: %s failed for %s: %v", name, caller.Phone, err)
		return domain.Failed(kind, internalFailureText)
	}
	r.log.Infof("Registry: %s rejected for %s: %v", name, caller.Phone, err)
	return domain.Failed(kind, reason(err))
}

var sentinels = []error{
	domain.ErrValidation,
	domain.ErrNotFound,
	domain.ErrAuthorization,
	domain.ErrInsufficientStock,
}

// reason strips the sentinel prefix so only the specific cause is shown.
func reason(err error) string {
	msg := err.Error()
	for _, s := range sentinels {
		if errors.Is(err, s) {
			msg = strings.TrimPrefix(msg, s.Error()+": ")
			break
		}
	}
	return capitalize(msg)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Catalog lists the callable functions for the system prompt. Admin-tier
// entries are only included when admin is true.
func (r *Registry) Catalog(admin bool) string {
	var b strings.Builder
	n := 0
	for _, fn := range r.functions {
		if fn.Tier != TierCustomer {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. %s - %s\n", n, fn.Usage, fn.Description)
	}
	if !admin {
		return b.String()
	}

	b.WriteString("\nADMIN-ONLY FUNCTIONS (this sender is the store administrator):\n")
	for _, fn := range r.functions {
		if fn.Tier != TierAdmin {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. %s - %s\n", n, fn.Usage, fn.Description)
	}
	return b.String()
}
