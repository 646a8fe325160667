package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dbehnke/usrp-link/pkg/usrp"
)

// link is the part of the engine the pump drives.
type link interface {
	Read(out []int16) (int, error)
	Write(samples []int16) (int, error)
	KeyTx(key bool) error
	PollCOS() bool
	Done() <-chan struct{}
	Err() error
}

var errLinkStopped = errors.New("link stopped")

// pump moves local audio into the link every frame period, keying up while
// audio flows and unkeying after hangTime of silence.
type pump struct {
	link     link
	hangTime time.Duration
	logger   *slog.Logger
	now      func() time.Time

	buf       []int16
	keyed     bool
	cos       bool
	lastAudio time.Time
}

func newPump(l link, hangTime time.Duration, logger *slog.Logger) *pump {
	return &pump{
		link:     l,
		hangTime: hangTime,
		logger:   logger,
		now:      time.Now,
		buf:      make([]int16, 4*usrp.VoiceFrameSize),
	}
}

func (p *pump) run(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if p.keyed {
				p.keyed = false
				return p.link.KeyTx(false)
			}
			return nil
		case <-p.link.Done():
			if err := p.link.Err(); err != nil {
				return fmt.Errorf("%w: %w", errLinkStopped, err)
			}
			return errLinkStopped
		case <-ticker.C:
			if err := p.step(); err != nil {
				return err
			}
		}
	}
}

func (p *pump) step() error {
	now := p.now()

	n, err := p.link.Read(p.buf)
	if err != nil {
		return fmt.Errorf("read local audio: %w", err)
	}

	switch {
	case n > 0:
		if !p.keyed {
			if err := p.link.KeyTx(true); err != nil {
				p.logger.Warn("Key-up failed", slog.String("error", err.Error()))
			}
			p.keyed = true
			p.logger.Info("Local audio detected, keyed up")
		}
		p.lastAudio = now
		if written, err := p.link.Write(p.buf[:n]); err != nil {
			p.logger.Warn("Voice send failed", slog.String("error", err.Error()))
		} else if written == 0 {
			p.logger.Debug("Transmit buffer full, dropped samples", slog.Int("samples", n))
		}
	case p.keyed && now.Sub(p.lastAudio) >= p.hangTime:
		if err := p.link.KeyTx(false); err != nil {
			p.logger.Warn("Key-down failed", slog.String("error", err.Error()))
		}
		p.keyed = false
		p.logger.Info("Local audio stopped, unkeyed")
	}

	if cos := p.link.PollCOS(); cos != p.cos {
		p.cos = cos
		p.logger.Info("Remote COS changed", slog.Bool("active", cos))
	}
	return nil
}
