// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package selector

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/bureau-foundation/statesync/lib/command"
	"github.com/bureau-foundation/statesync/lib/schema/colormap"
	"github.com/bureau-foundation/statesync/lib/sharedvar"
)

// View is what a Selector displays.
type View struct {
	// Target is the bound entity, empty while unbound.
	Target string

	// Options is the colormap catalog in server order.
	Options []string

	// Selection is the displayed colormap, empty when none.
	Selection string

	// Low and High are the formatted intensity bounds, empty until a
	// bounds payload has been received for Target.
	Low  string
	High string
}

// Renderer displays a View. Render is called after every change.
type Renderer interface {
	Render(View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(View)

// Render calls f(view).
func (f RendererFunc) Render(view View) { f(view) }

// Selector is the colormap selection state machine.
type Selector struct {
	registry *sharedvar.Registry
	channel  command.Channel
	logger   *slog.Logger
	renderer Renderer

	catalog *sharedvar.Variable

	target    string
	options   []string
	selection string
	low       string
	high      string

	// generation increases on every Bind. A bounds callback only acts
	// if the generation it was registered under is still current,
	// because shared variables cannot be unsubscribed.
	generation uint64
}

// New returns an unbound Selector subscribed to the colormap catalog.
// The catalog's cached value, if any, is rendered before New returns.
// A nil logger means slog.Default().
func New(registry *sharedvar.Registry, channel command.Channel, logger *slog.Logger, renderer Renderer) (*Selector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if renderer == nil {
		renderer = RendererFunc(func(View) {})
	}
	catalog, err := registry.Bind(colormap.CatalogPath)
	if err != nil {
		return nil, err
	}
	selector := &Selector{
		registry: registry,
		channel:  channel,
		logger:   logger,
		renderer: renderer,
		catalog:  catalog,
	}
	catalog.OnChange(selector.catalogChanged)
	selector.catalogChanged()
	return selector, nil
}

// Bind points the Selector at target. It subscribes to
// "<target>/data" and renders its cached bounds, if any. Binding again
// replaces the target; notifications for the previous target's bounds
// are ignored from then on.
func (s *Selector) Bind(target string) error {
	path, err := colormap.DataPath(target)
	if err != nil {
		return err
	}
	s.generation++
	generation := s.generation
	data := s.registry.BindPath(path)
	data.OnChange(func() {
		if generation != s.generation {
			return
		}
		s.boundsChanged(data)
	})

	s.target = target
	s.low, s.high = "", ""
	s.logger.Info("selector bound", "target", target, "path", path.String())
	if !s.boundsChanged(data) {
		s.render()
	}
	return nil
}

// Select is a user choosing name. It returns command.ErrUnbound, and
// sends nothing, while no target is bound. Names outside the catalog
// are still sent; the server decides.
func (s *Selector) Select(name string) error {
	if s.target == "" {
		return command.ErrUnbound
	}
	if name == "" {
		return errors.New("selector: colormap name is empty")
	}
	s.selection = name
	s.render()

	requestID := s.channel.Send(command.Request{
		Target:  s.target,
		Name:    colormap.CommandSetColormap,
		Params:  command.Params{{Key: colormap.ParamName, Value: name}},
		Handler: s.outcome,
	})
	s.logger.Debug("colormap selection sent",
		"target", s.target,
		"name", name,
		"request_id", requestID,
	)
	return nil
}

// SetSelection changes the displayed selection without sending a
// command.
func (s *Selector) SetSelection(name string) {
	s.selection = name
	s.render()
}

// View returns a snapshot of the displayed state.
func (s *Selector) View() View {
	return View{
		Target:    s.target,
		Options:   slices.Clone(s.options),
		Selection: s.selection,
		Low:       s.low,
		High:      s.high,
	}
}

func (s *Selector) outcome(outcome command.Outcome) {
	if outcome.Succeeded() {
		return
	}
	rejected, ok := outcome.Rejection()
	if !ok {
		s.logger.Warn("colormap command failed",
			"request_id", outcome.RequestID,
			"error", outcome.Err,
		)
		return
	}
	if rejected.Reason == "" {
		s.logger.Warn("colormap command rejected without a revert value",
			"request_id", outcome.RequestID,
			"command", rejected.Command,
		)
		return
	}
	s.logger.Warn("colormap command rejected, reverting selection",
		"request_id", outcome.RequestID,
		"command", rejected.Command,
		"displayed", s.selection,
		"revert_to", rejected.Reason,
	)
	s.SetSelection(rejected.Reason)
}

func (s *Selector) catalogChanged() {
	raw, ok := s.catalog.Get()
	if !ok {
		return
	}
	payload, err := colormap.ParseOptions(raw)
	if err != nil {
		s.logger.Warn("ignoring colormap catalog update",
			"path", colormap.CatalogPath,
			"error", err,
		)
		return
	}

	s.options = slices.Clone(payload.Maps)
	switch {
	case s.selection != "" && slices.Contains(s.options, s.selection):
		// Still offered.
	case len(s.options) > 0:
		s.selection = s.options[0]
	default:
		s.selection = ""
	}
	s.render()
}

// boundsChanged reads data and updates the displayed bounds. It
// reports whether it rendered.
func (s *Selector) boundsChanged(data *sharedvar.Variable) bool {
	raw, ok := data.Get()
	if !ok {
		return false
	}
	payload, err := colormap.ParseBounds(raw)
	if err != nil {
		s.logger.Warn("ignoring colormap bounds update",
			"path", data.Path().String(),
			"error", err,
		)
		return false
	}
	s.low = colormap.FormatNumber(payload.IntensityMin)
	s.high = colormap.FormatNumber(payload.IntensityMax)
	s.render()
	return true
}

func (s *Selector) render() {
	s.renderer.Render(s.View())
}
