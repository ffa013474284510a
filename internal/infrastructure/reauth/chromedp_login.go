package reauth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/infrastructure/sellerapi"
)

const (
	defaultLoginURL     = "https://seller.digikala.com/"
	defaultLoginTimeout = 3 * time.Minute
	otpLength           = 6

	// The panel confirms login asynchronously; give the session cookies
	// time to land before harvesting them.
	sessionSettleDelay = 10 * time.Second
)

// OTPProvider resolves the one-time password the panel sends after the
// username step. Implementations may poll a mailbox or prompt a human.
type OTPProvider interface {
	OTP(ctx context.Context) (string, error)
}

// OTPFunc adapts a plain function to OTPProvider
type OTPFunc func(ctx context.Context) (string, error)

func (f OTPFunc) OTP(ctx context.Context) (string, error) { return f(ctx) }

// Config contains configuration for the browser login flow
type Config struct {
	// LoginURL is the seller panel entry page
	LoginURL string
	// Username is the email or mobile number for the seller account
	Username string
	// Timeout bounds the whole login flow
	Timeout time.Duration
	// Headless mode (default: true)
	Headless bool
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// RemoteURL is the URL of a remote Chrome/Chromium instance (optional)
	RemoteURL string
}

// ChromedpReauthenticator drives a real browser through the seller-panel
// login and harvests the resulting session cookies. It satisfies the
// client's re-authentication contract.
type ChromedpReauthenticator struct {
	cfg         Config
	otp         OTPProvider
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpReauthenticator creates a browser-based re-authenticator
func NewChromedpReauthenticator(cfg Config, otp OTPProvider, logger *zap.Logger) (*ChromedpReauthenticator, error) {
	if cfg.Username == "" {
		return nil, fmt.Errorf("reauth: username is required")
	}
	if otp == nil {
		return nil, fmt.Errorf("reauth: otp provider is required")
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = defaultLoginURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultLoginTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &ChromedpReauthenticator{cfg: cfg, otp: otp, logger: logger}
	r.initAllocator()
	return r, nil
}

func (r *ChromedpReauthenticator) initAllocator() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true), // Important for Docker
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
	)
	if r.cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}

	if r.cfg.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), r.cfg.RemoteURL)
	} else {
		r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
}

// Close releases the browser allocator
func (r *ChromedpReauthenticator) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

// Reauthenticate runs the full login flow: username, OTP, cookie harvest.
func (r *ChromedpReauthenticator) Reauthenticate(ctx context.Context) (sellerapi.CredentialSet, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx)
	defer browserCancel()

	// Bind the browser tab's lifetime to the caller's context
	go func() {
		select {
		case <-ctx.Done():
			browserCancel()
		case <-browserCtx.Done():
		}
	}()

	r.logger.Info("starting browser login", zap.String("url", r.cfg.LoginURL))

	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(r.cfg.LoginURL),
		chromedp.WaitVisible(`input[name="userName"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="userName"]`, r.cfg.Username, chromedp.ByQuery),
		chromedp.Sleep(1500*time.Millisecond),
		clickConfirm(),
	); err != nil {
		return nil, fmt.Errorf("reauth: username step failed: %w", err)
	}

	r.logger.Info("username submitted, waiting for one-time password")
	code, err := r.otp.OTP(ctx)
	if err != nil {
		return nil, fmt.Errorf("reauth: otp lookup failed: %w", err)
	}
	code = strings.TrimSpace(code)
	if len(code) < otpLength {
		return nil, fmt.Errorf("reauth: otp %q too short, want %d digits", code, otpLength)
	}

	var cookies []*network.Cookie
	if err := chromedp.Run(browserCtx,
		fillOTP(code),
		chromedp.Sleep(sessionSettleDelay),
		chromedp.ActionFunc(func(c context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(c)
			return err
		}),
	); err != nil {
		return nil, fmt.Errorf("reauth: otp step failed: %w", err)
	}

	set := make(sellerapi.CredentialSet, 0, len(cookies))
	for _, c := range cookies {
		set = append(set, sellerapi.Credential{Name: c.Name, Value: c.Value})
	}
	if set.IsEmpty() {
		return nil, fmt.Errorf("reauth: login produced no session cookies")
	}

	r.logger.Info("browser login complete", zap.Int("cookies", len(set)))
	return set, nil
}

// clickConfirm presses the submit button under the username field. The
// panel renders it without a stable id, only its Persian caption.
func clickConfirm() chromedp.Action {
	const script = `(() => {
		const labels = ["تایید", "بعدی", "ادامه"];
		for (const btn of document.querySelectorAll("button")) {
			const text = (btn.textContent || "").trim();
			if (!btn.disabled && labels.some(l => text.includes(l))) {
				btn.click();
				return true;
			}
		}
		return false;
	})()`

	return chromedp.ActionFunc(func(ctx context.Context) error {
		var clicked bool
		if err := chromedp.Evaluate(script, &clicked).Do(ctx); err != nil {
			return err
		}
		if !clicked {
			return fmt.Errorf("confirm button not found")
		}
		return nil
	})
}

// fillOTP types the code into the six single-digit tel inputs and presses
// the final login button.
func fillOTP(code string) chromedp.Action {
	const selector = `input[type="tel"][autocomplete="off"]`

	return chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.WaitVisible(selector, chromedp.ByQuery).Do(ctx); err != nil {
			return err
		}
		if err := chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll).Do(ctx); err != nil {
			return err
		}
		if len(nodes) != otpLength {
			return fmt.Errorf("expected %d otp inputs, found %d", otpLength, len(nodes))
		}

		digits := []rune(code)
		for i, node := range nodes {
			keys := chromedp.SendKeys([]cdp.NodeID{node.NodeID}, string(digits[i]), chromedp.ByNodeID)
			if err := keys.Do(ctx); err != nil {
				return err
			}
		}
		return clickConfirm().Do(ctx)
	})
}
