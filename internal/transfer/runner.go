package transfer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/stoatbridge/stoatbridge/internal/mapping"
	"github.com/stoatbridge/stoatbridge/internal/permset"
)

// Mode selects how the run obtains its target server.
type Mode string

const (
	// ModeNewServer creates a fresh server and builds into it.
	ModeNewServer Mode = "new"
	// ModeMerge builds into an existing server, keeping its content.
	ModeMerge Mode = "merge"
	// ModeReplace wipes an existing server first, then builds into it.
	ModeReplace Mode = "replace"
)

// Delays spaces out remote calls so the target's rate limiter is never hit
// in the first place. Zero values fall back to defaults.
type Delays struct {
	Role       time.Duration
	Category   time.Duration
	Channel    time.Duration
	Permission time.Duration
	Asset      time.Duration
	Move       time.Duration
}

func (d *Delays) normalize() {
	if d.Role == 0 {
		d.Role = 500 * time.Millisecond
	}
	if d.Category == 0 {
		d.Category = 800 * time.Millisecond
	}
	if d.Channel == 0 {
		d.Channel = 500 * time.Millisecond
	}
	if d.Permission == 0 {
		d.Permission = 300 * time.Millisecond
	}
	if d.Asset == 0 {
		d.Asset = time.Second
	}
	if d.Move == 0 {
		d.Move = 300 * time.Millisecond
	}
}

// Options configures one run.
type Options struct {
	Mode     Mode
	ServerID string // target server for merge and replace modes
	Delays   Delays
	Observer Observer
}

// Runner executes one migration plan against one Gateway. A Runner is single
// use; construct a new one per run.
type Runner struct {
	gw   Gateway
	cfg  *mapping.Config
	opts Options

	report *Report
}

// NewRunner prepares a run. It validates the options but performs no remote
// calls until Run.
func NewRunner(gw Gateway, cfg *mapping.Config, opts Options) (*Runner, error) {
	if cfg == nil {
		return nil, ErrNilMapping
	}

	if opts.Mode == "" {
		opts.Mode = ModeNewServer
	}

	if opts.Mode != ModeNewServer && opts.ServerID == "" {
		return nil, ErrMissingServerID
	}

	opts.Delays.normalize()

	report := &Report{
		RoleMap:     map[string]string{},
		ChannelMap:  map[string]string{},
		CategoryMap: map[string]string{},
		Stats:       map[Step]*StepStats{},
	}

	for _, s := range Steps {
		report.Stats[s] = &StepStats{Status: StatusPending}
	}

	return &Runner{gw: gw, cfg: cfg, opts: opts, report: report}, nil
}

// Run walks every step in order and returns the report. Per-item failures
// are recorded and the run continues; a failure in the clear or server step
// aborts the run with an error. Cancelling the context stops the run at the
// next item boundary and flags the report as aborted.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	defer func() { r.report.Duration = time.Since(start) }()

	type phase struct {
		step  Step
		fatal bool
		run   func(context.Context) error
	}

	phases := []phase{
		{StepClear, true, r.runClear},
		{StepServer, true, r.runServer},
		{StepBranding, false, r.runBranding},
		{StepRoles, false, r.runRoles},
		{StepCategories, false, r.runCategories},
		{StepChannels, false, r.runChannels},
		{StepPermissions, false, r.runPermissions},
		{StepEmojis, false, r.runEmojis},
		{StepCustom, false, r.runCustom},
	}

	for _, p := range phases {
		if r.aborted(ctx) {
			return r.report, nil
		}

		st := r.report.Stats[p.step]
		r.setStatus(p.step, StatusRunning)

		err := p.run(ctx)
		if r.aborted(ctx) {
			return r.report, nil
		}

		if err != nil {
			st.Errors = append(st.Errors, err.Error())
			r.setStatus(p.step, StatusError)

			if p.fatal {
				return r.report, errors.Wrapf(err, "transfer failed at step %s", p.step)
			}

			continue
		}

		r.setStatus(p.step, stepOutcome(p.step, st))
	}

	log.Info().
		Str("server", r.report.ServerID).
		Dur("duration", time.Since(start)).
		Msg("transfer finished")

	return r.report, nil
}

// stepOutcome derives a step's final status from its item counters. Emoji
// uploads are strict: a single failure marks the whole step as failed.
func stepOutcome(step Step, st *StepStats) Status {
	if step == StepEmojis && st.Failed > 0 {
		return StatusError
	}

	switch {
	case st.Success == 0 && st.Failed == 0:
		return StatusSkipped
	case st.Success == 0 && st.Failed > 0:
		return StatusError
	default:
		return StatusDone
	}
}

func (r *Runner) setStatus(step Step, status Status) {
	st := r.report.Stats[step]
	st.Status = status

	if r.opts.Observer != nil {
		r.opts.Observer(step, status, *st)
	}
}

func (r *Runner) aborted(ctx context.Context) bool {
	if ctx.Err() != nil {
		r.report.Aborted = true

		return true
	}

	return false
}

// delay waits between remote calls, returning early when the context is
// cancelled.
func (r *Runner) delay(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (r *Runner) trackSuccess(step Step) {
	r.report.Stats[step].Success++
	countItem(step, "success")
}

func (r *Runner) trackFail(step Step, item string, err error) {
	st := r.report.Stats[step]
	st.Failed++
	st.Errors = append(st.Errors, fmt.Sprintf("%s: %v", item, err))
	countItem(step, "failed")

	log.Warn().Err(err).Str("step", string(step)).Str("item", item).Msg("transfer item failed")
}

func (r *Runner) trackSkip(step Step) {
	r.report.Stats[step].Skipped++
	countItem(step, "skipped")
}

func (r *Runner) runClear(ctx context.Context) error {
	if r.opts.Mode != ModeReplace {
		return nil
	}

	summary, err := r.gw.ClearServer(ctx, r.opts.ServerID)
	if err != nil {
		return errors.Wrap(err, "clearing target server")
	}

	r.report.Clear = &summary
	r.trackSuccess(StepClear)

	return nil
}

func (r *Runner) runServer(ctx context.Context) error {
	if r.opts.Mode != ModeNewServer {
		r.report.ServerID = r.opts.ServerID
		r.trackSuccess(StepServer)

		return nil
	}

	desc := r.cfg.ServerDescription
	if desc == "" {
		desc = "Migrated from Discord"
	}

	id, err := r.gw.CreateServer(ctx, r.cfg.ServerName, desc)
	if err != nil {
		return errors.Wrap(err, "creating server")
	}

	r.report.ServerID = id
	r.trackSuccess(StepServer)

	return nil
}

func (r *Runner) runBranding(ctx context.Context) error {
	icon := r.cfg.CustomIconURL
	if icon == "" {
		icon = r.cfg.SourceIconURL
	}

	banner := r.cfg.CustomBannerURL
	if banner == "" {
		banner = r.cfg.SourceBannerURL
	}

	if r.cfg.IncludeIcon && icon != "" {
		if err := r.gw.SetServerIcon(ctx, r.report.ServerID, icon); err != nil {
			r.trackFail(StepBranding, "icon", err)
		} else {
			r.trackSuccess(StepBranding)
		}

		r.delay(ctx, r.opts.Delays.Asset)
	} else {
		r.trackSkip(StepBranding)
	}

	if r.aborted(ctx) {
		return nil
	}

	if r.cfg.IncludeBanner && banner != "" {
		if err := r.gw.SetServerBanner(ctx, r.report.ServerID, banner); err != nil {
			r.trackFail(StepBranding, "banner", err)
		} else {
			r.trackSuccess(StepBranding)
		}
	} else {
		r.trackSkip(StepBranding)
	}

	return nil
}

// rolePermissions resolves the permissions to push for a role: the edited
// pair when present, otherwise a fresh translation of the raw source bitset.
func rolePermissions(role *mapping.Role) (permset.Pair, error) {
	if role.Target != nil {
		return *role.Target, nil
	}

	bits, err := strconv.ParseUint(role.Permissions, 10, 64)
	if err != nil {
		return permset.Pair{}, errors.Wrapf(err, "role %s has malformed permission bits", role.Name)
	}

	return permset.TranslateRolePermissions(bits), nil
}

func (r *Runner) runRoles(ctx context.Context) error {
	rank := 0

	for i := range r.cfg.Roles {
		if r.aborted(ctx) {
			return nil
		}

		role := &r.cfg.Roles[i]
		if !role.Included || role.IsDefault || role.Managed {
			continue
		}

		rank++

		id, err := r.gw.CreateRole(ctx, r.report.ServerID, role.Name, rank)
		if err != nil {
			r.trackFail(StepRoles, role.Name, err)
			r.delay(ctx, r.opts.Delays.Role)

			continue
		}

		// Record the mapping before any patch: later steps need it even
		// when colour or permission updates fail.
		r.report.RoleMap[role.SourceID] = id

		failed := false

		if role.Color != 0 || role.Hoist {
			colour := fmt.Sprintf("#%06x", role.Color&0xffffff)
			hoist := role.Hoist

			if err := r.gw.EditRole(ctx, r.report.ServerID, id, RoleEdit{Colour: &colour, Hoist: &hoist}); err != nil {
				r.trackFail(StepRoles, role.Name, err)

				failed = true
			}
		}

		perms, err := rolePermissions(role)
		if err != nil {
			r.trackFail(StepRoles, role.Name, err)

			failed = true
		} else if err := r.gw.SetRolePermissions(ctx, r.report.ServerID, id, perms); err != nil {
			r.trackFail(StepRoles, role.Name, err)

			failed = true
		}

		if !failed {
			r.trackSuccess(StepRoles)
		}

		r.delay(ctx, r.opts.Delays.Role)
	}

	if r.aborted(ctx) {
		return nil
	}

	if def := r.cfg.DefaultRole(); def != nil && def.Included && def.Target != nil {
		if err := r.gw.SetDefaultPermissions(ctx, r.report.ServerID, *def.Target); err != nil {
			r.trackFail(StepRoles, def.Name, err)
		} else {
			r.trackSuccess(StepRoles)
		}
	}

	return nil
}

func (r *Runner) runCategories(ctx context.Context) error {
	for i := range r.cfg.Categories {
		if r.aborted(ctx) {
			return nil
		}

		cat := &r.cfg.Categories[i]
		if cat.Synthetic() || !cat.Included {
			continue
		}

		id, err := r.gw.CreateCategory(ctx, r.report.ServerID, cat.Name)
		if err != nil {
			r.trackFail(StepCategories, cat.Name, err)
		} else {
			r.report.CategoryMap[cat.SourceID] = id
			r.trackSuccess(StepCategories)
		}

		r.delay(ctx, r.opts.Delays.Category)
	}

	return nil
}

func channelKindName(kind mapping.ChannelKind) string {
	if kind == mapping.KindVoice {
		return "Voice"
	}

	return "Text"
}

func (r *Runner) runChannels(ctx context.Context) error {
	for i := range r.cfg.Categories {
		cat := &r.cfg.Categories[i]

		for j := range cat.Channels {
			if r.aborted(ctx) {
				return nil
			}

			ch := &cat.Channels[j]
			if !ch.Included || !ch.Kind.Transferable() {
				continue
			}

			id, err := r.gw.CreateChannel(ctx, r.report.ServerID, ChannelSpec{
				Name:        ch.Name,
				Kind:        channelKindName(ch.Kind),
				Description: ch.Topic,
				NSFW:        ch.NSFW,
			})
			if err != nil {
				r.trackFail(StepChannels, ch.Name, err)
				r.delay(ctx, r.opts.Delays.Channel)

				continue
			}

			r.report.ChannelMap[ch.SourceID] = id
			r.trackSuccess(StepChannels)

			if catID, ok := r.report.CategoryMap[cat.SourceID]; ok {
				r.delay(ctx, r.opts.Delays.Move)

				// Placement is cosmetic: a failed move leaves the channel
				// at the server root and the run keeps going.
				if err := r.gw.MoveChannelToCategory(ctx, r.report.ServerID, catID, id); err != nil {
					log.Debug().Err(err).Str("channel", ch.Name).Msg("channel placement failed")
				}
			}

			r.delay(ctx, r.opts.Delays.Channel)
		}
	}

	return nil
}

// applyOverrides pushes the per-role overrides of one channel. Neutral
// overrides, redundant view denials on private channels, and overrides whose
// role never made it to the target are skipped.
func (r *Runner) applyOverrides(ctx context.Context, channelID string, private bool, overrides []mapping.Override) {
	for _, o := range overrides {
		if r.aborted(ctx) {
			return
		}

		if o.Neutral() {
			r.trackSkip(StepPermissions)

			continue
		}

		if private && o.CanView == permset.Deny {
			r.trackSkip(StepPermissions)

			continue
		}

		roleID, ok := r.report.RoleMap[o.RoleID]
		if !ok {
			r.trackSkip(StepPermissions)

			continue
		}

		pair := permset.EncodeOverride(o.CanView, o.CanSend)
		if err := r.gw.SetChannelPermissions(ctx, channelID, roleID, pair); err != nil {
			r.trackFail(StepPermissions, o.RoleName, err)
		} else {
			r.trackSuccess(StepPermissions)
		}

		r.delay(ctx, r.opts.Delays.Permission)
	}
}

func (r *Runner) runPermissions(ctx context.Context) error {
	baseDeny := permset.Pair{Deny: permset.StoatViewChannel | permset.StoatSendMessage}
	readOnly := permset.Pair{Allow: permset.StoatViewChannel, Deny: permset.StoatSendMessage}

	for i := range r.cfg.Categories {
		for j := range r.cfg.Categories[i].Channels {
			if r.aborted(ctx) {
				return nil
			}

			ch := &r.cfg.Categories[i].Channels[j]

			channelID, ok := r.report.ChannelMap[ch.SourceID]
			if !ok {
				continue
			}

			// The default role is locked down first so a private channel is
			// never world-visible between the following per-role grants.
			switch {
			case ch.Private():
				if err := r.gw.SetChannelPermissions(ctx, channelID, DefaultRoleID, baseDeny); err != nil {
					r.trackFail(StepPermissions, ch.Name, err)
				} else {
					r.trackSuccess(StepPermissions)
				}

				r.delay(ctx, r.opts.Delays.Permission)
			case ch.PublicReadOnly():
				if err := r.gw.SetChannelPermissions(ctx, channelID, DefaultRoleID, readOnly); err != nil {
					r.trackFail(StepPermissions, ch.Name, err)
				} else {
					r.trackSuccess(StepPermissions)
				}

				r.delay(ctx, r.opts.Delays.Permission)
			}

			r.applyOverrides(ctx, channelID, ch.Private(), ch.Overrides)
		}
	}

	return nil
}

func (r *Runner) runEmojis(ctx context.Context) error {
	for _, e := range r.cfg.Emojis {
		if r.aborted(ctx) {
			return nil
		}

		if !e.Included {
			continue
		}

		if err := r.gw.CreateEmoji(ctx, r.report.ServerID, e.Name, e.URL); err != nil {
			r.trackFail(StepEmojis, e.Name, err)
		} else {
			r.trackSuccess(StepEmojis)
		}

		r.delay(ctx, r.opts.Delays.Asset)
	}

	return nil
}

func (r *Runner) runCustom(ctx context.Context) error {
	baseDeny := permset.Pair{Deny: permset.StoatViewChannel | permset.StoatSendMessage}

	for i := range r.cfg.CustomChannels {
		if r.aborted(ctx) {
			return nil
		}

		cc := &r.cfg.CustomChannels[i]

		id, err := r.gw.CreateChannel(ctx, r.report.ServerID, ChannelSpec{
			Name: cc.Name,
			Kind: channelKindName(cc.Kind),
		})
		if err != nil {
			r.trackFail(StepCustom, cc.Name, err)
			r.delay(ctx, r.opts.Delays.Channel)

			continue
		}

		r.trackSuccess(StepCustom)

		if catID, ok := r.report.CategoryMap[cc.CategoryID]; ok {
			r.delay(ctx, r.opts.Delays.Move)

			if err := r.gw.MoveChannelToCategory(ctx, r.report.ServerID, catID, id); err != nil {
				log.Debug().Err(err).Str("channel", cc.Name).Msg("channel placement failed")
			}
		}

		if cc.IsPrivate {
			r.delay(ctx, r.opts.Delays.Permission)

			if err := r.gw.SetChannelPermissions(ctx, id, DefaultRoleID, baseDeny); err != nil {
				r.trackFail(StepCustom, cc.Name, err)
			}
		}

		for _, o := range cc.Overrides {
			if r.aborted(ctx) {
				return nil
			}

			if o.Neutral() {
				continue
			}

			if cc.IsPrivate && o.CanView == permset.Deny {
				continue
			}

			if !cc.IsPrivate && o.CanView == permset.Allow && o.CanSend == permset.Allow {
				continue
			}

			roleID, ok := r.report.RoleMap[o.RoleID]
			if !ok {
				continue
			}

			r.delay(ctx, r.opts.Delays.Permission)

			if err := r.gw.SetChannelPermissions(ctx, id, roleID, permset.EncodeOverride(o.CanView, o.CanSend)); err != nil {
				r.trackFail(StepCustom, o.RoleName, err)
			}
		}

		r.delay(ctx, r.opts.Delays.Channel)
	}

	for i := range r.cfg.CustomRoles {
		if r.aborted(ctx) {
			return nil
		}

		cr := &r.cfg.CustomRoles[i]

		id, err := r.gw.CreateRole(ctx, r.report.ServerID, cr.Name, 0)
		if err != nil {
			r.trackFail(StepCustom, cr.Name, err)
			r.delay(ctx, r.opts.Delays.Role)

			continue
		}

		r.trackSuccess(StepCustom)

		if cr.Color != "" {
			colour := cr.Color

			if err := r.gw.EditRole(ctx, r.report.ServerID, id, RoleEdit{Colour: &colour}); err != nil {
				r.trackFail(StepCustom, cr.Name, err)
			}
		}

		if cr.Target != nil {
			if err := r.gw.SetRolePermissions(ctx, r.report.ServerID, id, *cr.Target); err != nil {
				r.trackFail(StepCustom, cr.Name, err)
			}
		}

		r.delay(ctx, r.opts.Delays.Role)
	}

	for i := range r.cfg.CustomCategories {
		if r.aborted(ctx) {
			return nil
		}

		cc := &r.cfg.CustomCategories[i]

		if _, err := r.gw.CreateCategory(ctx, r.report.ServerID, cc.Name); err != nil {
			r.trackFail(StepCustom, cc.Name, err)
		} else {
			r.trackSuccess(StepCustom)
		}

		r.delay(ctx, r.opts.Delays.Category)
	}

	return nil
}
