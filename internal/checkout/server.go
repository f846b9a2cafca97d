package checkout

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/GowthamR7/wallet-frontend/internal/api"
	"github.com/GowthamR7/wallet-frontend/internal/topup"
)

const defaultWait = 5 * time.Minute

// Options configure the local checkout server.
type Options struct {
	// KeyID is the Razorpay publishable key embedded in the checkout page.
	KeyID string
	// Addr is the loopback address to serve the checkout on. Use port 0 to
	// pick a free port.
	Addr string
	// Timeout bounds how long Collect waits for the gateway callback before
	// treating the payment as abandoned.
	Timeout time.Duration
	// Ready, when set, is invoked with the checkout URL once the server is
	// listening.
	Ready  func(url string)
	Logger *slog.Logger
}

// Server implements topup.Surface with a short-lived local fiber app: one
// page embedding the hosted checkout script and one callback route the page
// posts the gateway confirmation to. It exists only for the duration of a
// single Collect call.
type Server struct {
	opts Options
}

// New builds a checkout server. The Razorpay key id is required since the
// checkout page cannot open the gateway without it.
func New(opts Options) (*Server, error) {
	if opts.KeyID == "" {
		return nil, fmt.Errorf("razorpay key id is required")
	}
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:7878"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultWait
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{opts: opts}, nil
}

type callbackPayload struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// Collect serves the checkout page for the order and blocks until the page
// reports a completed payment, the user cancels, the timeout elapses, or ctx
// is cancelled. Everything but a completed payment settles as abandonment.
func (s *Server) Collect(ctx context.Context, order api.Order, email string) (topup.Confirmation, error) {
	page, err := renderPage(pageData{
		KeyID:    s.opts.KeyID,
		OrderID:  order.OrderID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Email:    email,
	})
	if err != nil {
		return topup.Confirmation{}, fmt.Errorf("render checkout page: %w", err)
	}

	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return topup.Confirmation{}, fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}

	confCh := make(chan topup.Confirmation, 1)
	cancelCh := make(chan struct{}, 1)

	app := fiber.New(fiber.Config{
		AppName:               "wallet-checkout",
		DisableStartupMessage: true,
	})
	app.Get("/", func(c *fiber.Ctx) error {
		c.Type("html")
		return c.Send(page)
	})
	app.Post("/callback", func(c *fiber.Ctx) error {
		var payload callbackPayload
		if err := c.BodyParser(&payload); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if payload.PaymentID == "" || payload.Signature == "" {
			return fiber.NewError(http.StatusBadRequest, "incomplete payment confirmation")
		}
		select {
		case confCh <- topup.Confirmation{
			OrderID:   payload.OrderID,
			PaymentID: payload.PaymentID,
			Signature: payload.Signature,
		}:
		default:
		}
		return c.JSON(fiber.Map{"status": "received"})
	})
	app.Post("/cancel", func(c *fiber.Ctx) error {
		select {
		case cancelCh <- struct{}{}:
		default:
		}
		return c.JSON(fiber.Map{"status": "cancelled"})
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listener(listener)
	}()
	defer func() {
		if err := app.Shutdown(); err != nil {
			s.opts.Logger.Warn("shutdown checkout server", "error", err)
		}
	}()

	url := fmt.Sprintf("http://%s/", listener.Addr().String())
	s.opts.Logger.Info("checkout ready", "url", url, "order", order.OrderID)
	if s.opts.Ready != nil {
		s.opts.Ready(url)
	}

	timer := time.NewTimer(s.opts.Timeout)
	defer timer.Stop()

	select {
	case confirmation := <-confCh:
		return confirmation, nil
	case <-cancelCh:
		return topup.Confirmation{}, topup.ErrAbandoned
	case <-timer.C:
		s.opts.Logger.Info("checkout timed out", "order", order.OrderID)
		return topup.Confirmation{}, topup.ErrAbandoned
	case <-ctx.Done():
		return topup.Confirmation{}, topup.ErrAbandoned
	case err := <-errCh:
		return topup.Confirmation{}, fmt.Errorf("checkout server: %w", err)
	}
}

type pageData struct {
	KeyID    string
	OrderID  string
	Amount   int64
	Currency string
	Email    string
}

var pageTemplate = template.Must(template.New("checkout").Parse(`<!doctype html>
<html>
<head><title>Wallet Top-Up</title></head>
<body>
<p id="status">Opening payment window…</p>
<script src="https://checkout.razorpay.com/v1/checkout.js"></script>
<script>
  var options = {
    key: {{.KeyID}},
    amount: {{.Amount}},
    currency: {{.Currency}},
    name: "Wallet Top-Up",
    description: "Add money to your wallet",
    order_id: {{.OrderID}},
    handler: function (response) {
      fetch("/callback", {
        method: "POST",
        headers: {"Content-Type": "application/json"},
        body: JSON.stringify(response)
      }).then(function () {
        document.getElementById("status").textContent =
          "Payment submitted. You can return to the terminal.";
      });
    },
    prefill: { email: {{.Email}} },
    theme: { color: "#4f46e5" },
    modal: {
      ondismiss: function () {
        fetch("/cancel", { method: "POST" });
        document.getElementById("status").textContent = "Payment cancelled.";
      }
    }
  };
  new Razorpay(options).open();
</script>
</body>
</html>
`))

func renderPage(data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
