// Package indicator runs one LED controller as a bus service. The service
// goroutine is the controller's main loop: it owns the controller, polls Tick
// and applies mode changes received on the bus.
package indicator

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"ledfx-go/bus"
	"ledfx-go/errcode"
	"ledfx-go/led"
	"ledfx-go/types"
	"ledfx-go/x/timex"
)

// Control methods, the last token of led/<name>/control/<method>.
const (
	MethodFixed = "fixed"
	MethodBlink = "blink"
	MethodPulse = "pulse"
	MethodState = "state"
)

var topicConfigLED = bus.T("config", "led")

// ControlTopic is the topic for method on the named LED.
func ControlTopic(name, method string) bus.Topic { return bus.T("led", name, "control", method) }

// InfoTopic carries the retained types.LEDInfo of the named LED.
func InfoTopic(name string) bus.Topic { return bus.T("led", name, "info") }

// StateTopic carries the retained types.LEDState of the named LED.
func StateTopic(name string) bus.Topic { return bus.T("led", name, "state") }

type Service struct {
	cfg  Config
	ctrl *led.Controller
	log  *slog.Logger

	applied *types.LEDMode // last mode handed to ctrl
}

// New wraps ctrl, which must not be used by anything else once the service runs.
func New(cfg Config, ctrl *led.Controller, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.TickMs == 0 {
		cfg.TickMs = defaultTickMs
	}
	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	return &Service{
		cfg:  cfg,
		ctrl: ctrl,
		log:  log.With("service", "indicator", "led", cfg.Name),
	}
}

// Run begins the controller and loops until ctx is cancelled, then releases
// the pin.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) error {
	ctlSub := conn.Subscribe(bus.T("led", s.cfg.Name, "control", bus.AnyOne))
	defer conn.Unsubscribe(ctlSub)
	cfgSub := conn.Subscribe(topicConfigLED)
	defer conn.Unsubscribe(cfgSub)

	s.ctrl.Begin()
	defer s.ctrl.Close()

	if s.cfg.Mode != nil {
		if err := s.apply(*s.cfg.Mode); err != nil {
			s.log.Warn("startup mode rejected", "err", err)
		}
	}
	conn.Publish(conn.NewMessage(InfoTopic(s.cfg.Name), types.LEDInfo{
		Name:     s.cfg.Name,
		Pin:      s.cfg.Pin,
		Inverted: s.cfg.Inverted,
		Backend:  s.cfg.Backend,
	}, true))
	s.publishState(conn)
	s.log.Info("indicator started", "tick_ms", s.cfg.TickMs)

	tick := time.NewTicker(time.Duration(s.cfg.TickMs) * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("indicator stopping")
			return nil
		case <-tick.C:
			s.ctrl.Tick()
		case msg, ok := <-ctlSub.Channel():
			if !ok {
				return nil
			}
			s.handleControl(conn, msg)
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return nil
			}
			s.handleConfig(conn, msg)
		}
	}
}

// Start runs the service in a goroutine.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.Run(ctx, conn); err != nil {
			s.log.Error("indicator exited", "err", err)
		}
	}()
}

func (s *Service) handleControl(conn *bus.Connection, msg *bus.Message) {
	method, _ := msg.Topic[len(msg.Topic)-1].(string)
	var err error
	switch method {
	case MethodFixed:
		var p types.LEDFixed
		if p, err = decode[types.LEDFixed](msg.Payload); err == nil {
			err = s.apply(types.LEDMode{Type: MethodFixed, Fixed: &p})
		}
	case MethodBlink:
		var p types.LEDBlink
		if p, err = decode[types.LEDBlink](msg.Payload); err == nil {
			err = s.apply(types.LEDMode{Type: MethodBlink, Blink: &p})
		}
	case MethodPulse:
		var p types.LEDPulse
		if p, err = decode[types.LEDPulse](msg.Payload); err == nil {
			err = s.apply(types.LEDMode{Type: MethodPulse, Pulse: &p})
		}
	case MethodState:
		conn.Reply(msg, s.state(), false)
		return
	default:
		err = errcode.Unsupported
	}

	if err != nil {
		s.log.Warn("control rejected", "method", method, "err", err)
		conn.Reply(msg, types.ErrorReply{OK: false, Error: string(errcode.Of(err))}, false)
		return
	}
	conn.Reply(msg, types.OKReply{OK: true}, false)
	s.publishState(conn)
}

// handleConfig re-applies the mode of a (retained) config/led section. Pin
// and polarity are fixed at construction and are not changed here.
func (s *Service) handleConfig(conn *bus.Connection, msg *bus.Message) {
	cfg, err := ParseConfig(msg.Payload)
	if err != nil {
		s.log.Warn("config rejected", "err", err)
		return
	}
	if cfg.Pin != s.cfg.Pin || cfg.Inverted != s.cfg.Inverted {
		s.log.Warn("pin changes need a restart", "pin", cfg.Pin, "inverted", cfg.Inverted)
	}
	if cfg.Mode == nil {
		return
	}
	// the retained section replays the startup mode on subscribe
	if s.applied != nil && reflect.DeepEqual(*s.applied, *cfg.Mode) {
		s.log.Debug("config mode unchanged")
		return
	}
	if err := s.apply(*cfg.Mode); err != nil {
		s.log.Warn("config mode rejected", "err", err)
		return
	}
	s.publishState(conn)
}

// apply validates m and hands it to the controller.
func (s *Service) apply(m types.LEDMode) error {
	if err := validateMode(m); err != nil {
		return err
	}
	mode, _ := led.ParseMode(m.Type)
	switch mode {
	case led.Fixed:
		s.ctrl.SetFixed(m.Fixed.Level)
	case led.Blink:
		s.ctrl.SetBlinkParams(blinkParams(*m.Blink))
	case led.Pulse:
		s.ctrl.SetPulseParams(pulseParams(*m.Pulse))
	}
	s.applied = &m
	return nil
}

func (s *Service) state() types.LEDState {
	st := s.ctrl.State()
	return types.LEDState{
		Mode:     st.Mode.String(),
		Level:    st.Level,
		Min:      st.Min,
		Max:      st.Max,
		Inverted: st.Inverted,
		TS:       timex.NowMs(),
	}
}

func (s *Service) publishState(conn *bus.Connection) {
	conn.Publish(&bus.Message{Topic: StateTopic(s.cfg.Name), Payload: s.state(), Retained: true})
}
