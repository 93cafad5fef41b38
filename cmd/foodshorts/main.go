// Command foodshorts drives the order API from a terminal: it keeps a local
// cart and customer session, places orders and walks them through the
// dashboard flow.
//
// Usage:
//
//	foodshorts [global flags] <command> [args]
//
// Commands:
//
//	cart start <slug> table <n> | delivery   start a cart for a restaurant
//	cart add <productId> <name> <price>      add one unit of a product
//	cart qty <productId> <quantity>          set a line quantity (0 removes)
//	cart note <productId> <notes>            replace the notes of a line
//	cart show                                print the cart
//	cart clear                               empty the cart
//	login <customer.json>                    store the delivery customer
//	logout                                   forget the delivery customer
//	checkout [flags]                         submit the cart
//	orders [-status s] [-limit n]            list the operator's orders
//	order <id>                               show one order
//	set <id> <status>                        set an order status
//	advance <id>                             move an order to its next status
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Kmzf777/foodshorts/internal/cart"
	"github.com/Kmzf777/foodshorts/internal/client"
	"github.com/Kmzf777/foodshorts/internal/domain/customer"
	"github.com/Kmzf777/foodshorts/internal/domain/order"
	"github.com/Kmzf777/foodshorts/internal/localstore"
	"github.com/Kmzf777/foodshorts/internal/session"
)

type cli struct {
	api   *client.Client
	store localstore.Store
}

func main() {
	home, _ := os.UserHomeDir()
	var (
		apiURL   string
		token    string
		stateDir string
		verbose  bool
	)
	flag.StringVar(&apiURL, "api", envOr("FOODSHORTS_API_URL", "http://localhost:8080"), "order API base URL")
	flag.StringVar(&token, "token", os.Getenv("FOODSHORTS_TOKEN"), "operator bearer token for dashboard commands")
	flag.StringVar(&stateDir, "state", filepath.Join(home, ".foodshorts"), "directory holding the local cart and session")
	flag.BoolVar(&verbose, "v", false, "verbose logging")
	flag.Parse()

	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	lg, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	if err := run(ctx, apiURL, token, stateDir, flag.Args()); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintln(os.Stderr, "error:", apiErr.Message)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run(ctx context.Context, apiURL, token, stateDir string, args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return errors.New("command is required")
	}
	var opts []client.Option
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	api, err := client.New(apiURL, opts...)
	if err != nil {
		return err
	}
	store, err := localstore.NewFileStore(stateDir)
	if err != nil {
		return err
	}
	c := &cli{api: api, store: store}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "cart":
		return c.cart(rest)
	case "login":
		return c.login(rest)
	case "logout":
		sess, err := session.Open(c.store)
		if err != nil {
			return err
		}
		return sess.Logout()
	case "checkout":
		return c.checkout(ctx, rest)
	case "orders":
		return c.orders(ctx, rest)
	case "order":
		if len(rest) != 1 {
			return errors.New("usage: order <id>")
		}
		o, err := c.api.GetOrder(ctx, rest[0])
		if err != nil {
			return err
		}
		printOrder(o)
		return nil
	case "set":
		if len(rest) != 2 {
			return errors.New("usage: set <id> <status>")
		}
		status, err := order.ParseStatus(rest[1])
		if err != nil {
			return err
		}
		return c.move(ctx, rest[0], func(b *client.Board) (order.Order, error) {
			return b.SetStatus(ctx, rest[0], status)
		})
	case "advance":
		if len(rest) != 1 {
			return errors.New("usage: advance <id>")
		}
		return c.move(ctx, rest[0], func(b *client.Board) (order.Order, error) {
			return b.Advance(ctx, rest[0])
		})
	default:
		return errors.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) cart(args []string) error {
	crt, err := cart.Open(c.store)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = []string{"show"}
	}
	switch args[0] {
	case "start":
		if len(args) < 3 {
			return errors.New("usage: cart start <slug> table <n> | delivery")
		}
		var table *int
		origin := order.Origin(args[2])
		if origin == order.OriginTable {
			if len(args) != 4 {
				return errors.New("usage: cart start <slug> table <n>")
			}
			n, err := strconv.Atoi(args[3])
			if err != nil {
				return errors.Wrap(err, "table number")
			}
			table = &n
		}
		if err := crt.Initialize(args[1], origin, table); err != nil {
			return err
		}
	case "add":
		if len(args) != 4 {
			return errors.New("usage: cart add <productId> <name> <price>")
		}
		price, err := decimal.NewFromString(args[3])
		if err != nil {
			return errors.Wrap(err, "price")
		}
		if err := crt.AddItem(cart.ItemInput{ProductID: args[1], Name: args[2], Price: price}); err != nil {
			return err
		}
	case "qty":
		if len(args) != 3 {
			return errors.New("usage: cart qty <productId> <quantity>")
		}
		q, err := strconv.Atoi(args[2])
		if err != nil {
			return errors.Wrap(err, "quantity")
		}
		if err := crt.UpdateQuantity(args[1], q); err != nil {
			return err
		}
	case "note":
		if len(args) != 3 {
			return errors.New("usage: cart note <productId> <notes>")
		}
		if err := crt.UpdateNotes(args[1], args[2]); err != nil {
			return err
		}
	case "clear":
		if err := crt.Clear(); err != nil {
			return err
		}
	case "show":
	default:
		return errors.Errorf("unknown cart command %q", args[0])
	}
	printCart(crt)
	return nil
}

func (c *cli) login(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: login <customer.json>")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err, "read customer file")
	}
	var cust customer.Customer
	if err := cust.Decode(jx.DecodeBytes(raw)); err != nil {
		return errors.Wrap(err, "decode customer")
	}
	sess, err := session.Open(c.store)
	if err != nil {
		return err
	}
	if err := sess.Login(cust); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s\n", cust.Name)
	return nil
}

func (c *cli) checkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	var (
		in      client.CheckoutInput
		payment string
		addr    customer.Address
	)
	fs.StringVar(&in.CustomerName, "name", "", "customer name (table orders)")
	fs.StringVar(&in.CustomerPhone, "phone", "", "customer phone (table orders)")
	fs.StringVar(&payment, "payment", "pix", "payment method: cash, credit, debit, pix (delivery orders)")
	fs.StringVar(&addr.Street, "street", "", "delivery street; empty uses the saved address")
	fs.StringVar(&addr.Number, "number", "", "delivery street number")
	fs.StringVar(&addr.Complement, "complement", "", "delivery complement")
	fs.StringVar(&addr.Neighborhood, "neighborhood", "", "delivery neighborhood")
	fs.StringVar(&addr.City, "city", "", "delivery city")
	fs.StringVar(&addr.State, "state", "", "delivery state (2 letters)")
	fs.StringVar(&addr.Zipcode, "zipcode", "", "delivery zipcode")
	fs.BoolVar(&in.SaveAddress, "save-address", false, "save the delivery address to the customer profile")
	fs.StringVar(&in.IdempotencyKey, "key", "", "idempotency key; reuse it to retry a timed out checkout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	in.PaymentMethod = order.PaymentMethod(payment)
	if addr.Street != "" {
		in.Address = &addr
	}

	crt, err := cart.Open(c.store)
	if err != nil {
		return err
	}
	sess, err := session.Open(c.store)
	if err != nil {
		return err
	}
	receipt, err := client.Checkout(ctx, c.api, crt, sess, in)
	if err != nil {
		return err
	}
	fmt.Printf("Order #%d placed (%s)\n", receipt.OrderNumber, receipt.OrderID)
	return nil
}

func (c *cli) orders(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ContinueOnError)
	status := fs.String("status", "", "only orders with this status")
	limit := fs.Int("limit", 0, "max orders to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	b := client.NewBoard(c.api)
	if err := b.Refresh(ctx, order.ListFilter{Status: order.Status(*status), Limit: *limit}); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tORIGIN\tSTATUS\tTOTAL\tCREATED")
	for _, o := range b.Orders() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			o.Number, o.ID, o.Origin, o.Status, o.Total.StringFixed(2), o.CreatedAt.Local().Format("02/01 15:04"))
	}
	return w.Flush()
}

// move loads the order onto a board so status changes carry its version.
func (c *cli) move(ctx context.Context, id string, fn func(*client.Board) (order.Order, error)) error {
	b := client.NewBoard(c.api)
	if err := b.Refresh(ctx, order.ListFilter{}); err != nil {
		return err
	}
	if _, ok := b.Order(id); !ok {
		return errors.Errorf("order %s is not among the recent orders", id)
	}
	o, err := fn(b)
	if err != nil {
		return err
	}
	fmt.Printf("Order #%d is now %s\n", o.Number, o.Status)
	return nil
}

func printCart(crt *cart.Cart) {
	s := crt.Snapshot()
	if s.RestaurantSlug == "" {
		fmt.Println("Cart is not started")
		return
	}
	where := string(s.Origin)
	if s.TableNumber != nil {
		where = fmt.Sprintf("table %d", *s.TableNumber)
	}
	fmt.Printf("%s (%s)\n", s.RestaurantSlug, where)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, it := range s.Items {
		fmt.Fprintf(w, "%dx\t%s\t%s\t%s\t%s\n", it.Quantity, it.Name, it.Subtotal().StringFixed(2), it.ProductID, it.Notes)
	}
	_ = w.Flush()
	fmt.Printf("%d items, total %s\n", crt.ItemCount(), crt.Total().StringFixed(2))
}

func printOrder(o *order.Order) {
	fmt.Printf("Order #%d %s\nstatus %s, version %d\n", o.Number, o.ID, o.Status, o.Version)
	if o.TableNumber != nil {
		fmt.Printf("table %d, %s %s\n", *o.TableNumber, o.CustomerName, o.CustomerPhone)
	}
	if a := o.DeliveryAddress; a != nil {
		fmt.Printf("deliver to %s %s, %s, %s/%s (pay %s)\n", a.Street, a.Number, a.Neighborhood, a.City, a.State, o.PaymentMethod)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, it := range o.Items {
		fmt.Fprintf(w, "%dx\t%s\t%s\t%s\n", it.Quantity, it.ProductName, it.Subtotal.StringFixed(2), it.Notes)
	}
	_ = w.Flush()
	fmt.Printf("subtotal %s, delivery %s, total %s\n",
		o.Subtotal.StringFixed(2), o.DeliveryFee.StringFixed(2), o.Total.StringFixed(2))
}
