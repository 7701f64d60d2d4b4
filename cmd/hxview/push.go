package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pthm/hxview/internal/config"
	"github.com/pthm/hxview/lib/hotwire"
)

// hotTarget is the hot stream push and listen talk to.
type hotTarget struct {
	url     string
	channel string
}

// resolveHotTarget reads the config at path (defaults and environment
// when empty) and applies the explicit url and channel overrides.
func resolveHotTarget(path, url, channel string) (hotTarget, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return hotTarget{}, err
	}
	t := hotTarget{url: hotURL(cfg), channel: cfg.Hot.Channel}
	if url != "" {
		t.url = url
	}
	if channel != "" {
		t.channel = channel
	}
	if t.channel == "" {
		t.channel = hotwire.DefaultChannel
	}
	return t, nil
}

// hotURL is the stream URL a local server started from cfg listens on.
func hotURL(cfg config.Config) string {
	host, port, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return "http://" + cfg.Addr + cfg.Hot.Path
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + cfg.Hot.Path
}

// hotFlags parses the options shared by push and listen. Remaining
// arguments are returned in order.
func hotFlags(args []string, extra func(arg string) bool) (hotTarget, []string, error) {
	var path, url, channel string
	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config", "-c", "--url", "--channel":
			v, err := flagValue(args, i, args[i])
			if err != nil {
				return hotTarget{}, nil, err
			}
			switch args[i] {
			case "--url":
				url = v
			case "--channel":
				channel = v
			default:
				path = v
			}
			i++
		default:
			if extra != nil && extra(args[i]) {
				continue
			}
			if strings.HasPrefix(args[i], "--") {
				return hotTarget{}, nil, fmt.Errorf("unknown option: %s", args[i])
			}
			rest = append(rest, args[i])
		}
	}
	t, err := resolveHotTarget(path, url, channel)
	return t, rest, err
}

func runPush(args []string) error {
	var p hotwire.Payload
	target, scripts, err := hotFlags(args, func(arg string) bool {
		if arg == "--reload" {
			p.Reload = true
			return true
		}
		return false
	})
	if err != nil {
		return err
	}
	p.Scripts = scripts

	if err := p.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(struct {
		Channel string `json:"channel"`
		hotwire.Payload
	}{target.channel, p})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(target.url, "/")+"/publish", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("publish failed: %s: %s", resp.Status, strings.TrimSpace(string(out)))
	}

	var res struct {
		ID      uint64 `json:"id"`
		Channel string `json:"channel"`
	}
	if err := json.Unmarshal(out, &res); err != nil {
		return fmt.Errorf("publish response: %w", err)
	}
	fmt.Printf("published event %d on %s\n", res.ID, res.Channel)
	return nil
}

func runListen(args []string) error {
	target, rest, err := hotFlags(args, nil)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		target.url = rest[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src := hotwire.NewSource(target.url)
	src.Subscribe(target.channel, func(data []byte) {
		p, err := hotwire.DecodeJSON(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad payload: %v\n", err)
			return
		}
		if p.Reload {
			fmt.Println("reload")
			return
		}
		fmt.Println(strings.Join(p.Scripts, " "))
	})
	if err := src.Connect(ctx); err != nil {
		return err
	}
	defer src.Close()

	select {
	case <-ctx.Done():
		return nil
	case <-src.Done():
		return src.Err()
	}
}
