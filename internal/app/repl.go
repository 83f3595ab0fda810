package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"wallet_go/internal/domain"
	"wallet_go/internal/event"
	"wallet_go/internal/screen"
)

const helpText = `commands:
  toggle     switch between USD and HKD
  usd, hkd   pick a display currency
  set CODE   same, by currency code
  assets     show the assets screen
  settings   show the settings screen
  open       open the native settings page
  help       show this help
  quit       exit`

// REPL drives the text screens from line commands.
type REPL struct {
	b       *Bootstrap
	screens *screen.Screens
	out     io.Writer
	prompt  bool
}

// NewREPL writes to out. With prompt set, "> " is printed before each read.
func NewREPL(b *Bootstrap, out io.Writer, prompt bool) *REPL {
	return &REPL{
		b:       b,
		screens: screen.New(b.Config.App.WalletName, b.Config.App.Version),
		out:     out,
		prompt:  prompt,
	}
}

// Run reads commands from in until quit, EOF or ctx ends.
// The assets screen is re-rendered after every currency change.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	store := r.b.Store

	if err := store.WaitReady(ctx); err != nil {
		return err
	}
	sub := store.Subscribe(func(ev event.CurrencyChanged) {
		fmt.Fprintf(r.out, "\n💱 %s → %s (%s)\n", ev.From, ev.To, ev.Origin)
		r.renderAssets(ev.To)
	})
	defer sub.Unsubscribe()

	r.renderAssets(store.Current())

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		if r.prompt {
			fmt.Fprint(r.out, "> ")
		}
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if !r.exec(ctx, strings.TrimSpace(strings.ToLower(line))) {
				return nil
			}
		}
	}
}

// exec runs one command and reports whether to keep going.
func (r *REPL) exec(ctx context.Context, cmd string) bool {
	store := r.b.Store

	switch cmd {
	case "":
	case "toggle", "t":
		store.Toggle()
	case "usd", "hkd":
		r.switchTo(cmd)
	case "assets", "a":
		r.renderAssets(store.Current())
	case "settings", "s":
		err := r.screens.RenderSettings(r.out, screen.SettingsView{
			Currency:    store.Current(),
			NativeMode:  store.NativeMode(),
			StorageMode: r.b.Config.Storage.Driver,
			SavedAt:     r.b.LastSaved(ctx),
		})
		if err != nil {
			slog.Warn("Failed to render settings", slog.Any("error", err))
		}
	case "open", "o":
		if !store.NativeAvailable() {
			fmt.Fprintln(r.out, "native settings are not available in fallback mode")
			return true
		}
		if store.OpenNativeSettings(ctx) {
			fmt.Fprintln(r.out, "native settings page opened")
		} else {
			fmt.Fprintln(r.out, "native settings page could not be opened")
		}
	case "help", "h", "?":
		fmt.Fprintln(r.out, helpText)
	case "quit", "q", "exit":
		return false
	default:
		if code, ok := strings.CutPrefix(cmd, "set "); ok {
			r.switchTo(strings.TrimSpace(code))
			return true
		}
		fmt.Fprintf(r.out, "unknown command %q, try help\n", cmd)
	}
	return true
}

func (r *REPL) switchTo(raw string) {
	code := domain.FiatCode(strings.ToUpper(raw))
	if code == r.b.Store.Current() {
		fmt.Fprintf(r.out, "already showing %s\n", code)
		return
	}
	if _, err := r.b.Store.Set(code); err != nil {
		fmt.Fprintf(r.out, "cannot switch to %s: %v\n", code, err)
	}
}

func (r *REPL) renderAssets(code domain.FiatCode) {
	if err := r.screens.RenderAssets(r.out, code, r.b.Store.DerivedAssets()); err != nil {
		slog.Warn("Failed to render assets", slog.Any("error", err))
	}
}
