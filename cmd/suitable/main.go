package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"suitable-focus/internal/cart"
	"suitable-focus/internal/catalog"
	"suitable-focus/internal/config"
	"suitable-focus/internal/logging"
	"suitable-focus/internal/session"
	"suitable-focus/internal/supabase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := logging.NewSlog(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.App.LogLevel),
	})))

	// Wire the auth client and session manager
	client := supabase.New(cfg.Supabase.URL, cfg.Supabase.AnonKey,
		supabase.WithHTTPClient(&http.Client{Timeout: cfg.Supabase.HTTPTimeout}),
		supabase.WithLogger(logger))

	manager := session.New(client,
		session.WithLogger(logger),
		session.WithIdleTimeout(cfg.App.IdleTimeout),
		session.WithScheme(cfg.App.Scheme),
		session.WithStateListener(func(s session.State) {
			fmt.Printf("[session] %s\n", s)
		}))
	defer func() {
		manager.Close()
		client.Close()
	}()

	store := cart.NewStore()

	ctx := context.Background()
	if err := manager.Initialize(ctx); err != nil {
		printAuthError(err)
	}

	fmt.Println("Suitable Focus. Type 'help' for commands.")
	repl(ctx, manager, store)
}

func repl(ctx context.Context, manager *session.Manager, store *cart.Store) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "help":
			printHelp()

		case "signin":
			if len(args) != 2 {
				fmt.Println("usage: signin <email> <password>")
				continue
			}
			if err := manager.SignIn(ctx, args[0], args[1]); err != nil {
				printAuthError(err)
				continue
			}
			fmt.Println("Signed in as", manager.CurrentUser().Email)

		case "signup":
			if len(args) < 2 {
				fmt.Println("usage: signup <email> <password> [display name]")
				continue
			}
			if err := manager.SignUp(ctx, args[0], args[1], strings.Join(args[2:], " ")); err != nil {
				printAuthError(err)
				continue
			}
			fmt.Println("Check your email to confirm your account.")

		case "signout":
			if err := manager.SignOut(ctx); err != nil {
				printAuthError(err)
			}

		case "reset":
			if len(args) != 1 {
				fmt.Println("usage: reset <email>")
				continue
			}
			if err := manager.ResetPassword(ctx, args[0]); err != nil {
				printAuthError(err)
				continue
			}
			fmt.Println("Password reset email sent.")

		case "passwd":
			if len(args) != 1 {
				fmt.Println("usage: passwd <new password>")
				continue
			}
			if err := manager.UpdatePassword(ctx, args[0]); err != nil {
				printAuthError(err)
				continue
			}
			fmt.Println("Password updated.")

		case "profile":
			if len(args) < 1 {
				fmt.Println("usage: profile <display name>")
				continue
			}
			if err := manager.UpdateProfile(ctx, map[string]any{"name": strings.Join(args, " ")}); err != nil {
				printAuthError(err)
				continue
			}
			fmt.Println("Profile updated.")

		case "resend":
			if len(args) != 1 {
				fmt.Println("usage: resend <email>")
				continue
			}
			if err := manager.ResendVerificationEmail(ctx, args[0]); err != nil {
				printAuthError(err)
				continue
			}
			fmt.Println("Verification email sent.")

		case "link":
			if len(args) != 1 {
				fmt.Println("usage: link <deep link url>")
				continue
			}
			if err := manager.HandleDeepLink(ctx, args[0]); err != nil {
				printAuthError(err)
			}

		case "whoami":
			user := manager.CurrentUser()
			if user == nil {
				fmt.Println("Not signed in.")
				continue
			}
			fmt.Printf("%s <%s> (%s)\n", user.DisplayName, user.Email, manager.State())

		case "events":
			for _, e := range catalog.Events() {
				fmt.Printf("%-55s %-12s %-28s %s\n", e.ID, e.Date, e.Location, catalog.FormatPrice(e.Price))
			}

		case "services":
			for _, s := range catalog.Services() {
				fmt.Printf("%-40s %-10s %s\n", s.ID, s.Mode, catalog.FormatPrice(s.Price))
			}

		case "add":
			if len(args) != 1 {
				fmt.Println("usage: add <event or service id>")
				continue
			}
			addToCart(store, args[0])

		case "remove":
			if len(args) != 1 {
				fmt.Println("usage: remove <cart line id>")
				continue
			}
			store.RemoveItem(args[0])

		case "qty":
			if len(args) != 2 {
				fmt.Println("usage: qty <cart line id> <quantity>")
				continue
			}
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				fmt.Println("quantity must be a number")
				continue
			}
			store.SetQuantity(args[0], quantity)

		case "cart":
			printCart(store)

		case "checkout":
			manager.Touch(ctx)
			if manager.CurrentUser() == nil {
				fmt.Println("Sign in to check out.")
				continue
			}
			order, err := store.Checkout()
			if err != nil {
				fmt.Println("Checkout failed:", err)
				continue
			}
			fmt.Printf("Order %s placed: %d item(s), %s\n",
				order.Reference, order.ItemCount, catalog.FormatPrice(order.Total))

		case "quit", "exit":
			return

		default:
			fmt.Println("Unknown command. Type 'help' for commands.")
		}
	}
}

func addToCart(store *cart.Store, id string) {
	if event, err := catalog.FindEvent(id); err == nil {
		store.AddItem(event.CartItem())
		fmt.Println("Added", event.Title, "ticket to cart.")
		return
	}
	if service, err := catalog.FindService(id); err == nil {
		store.AddItem(service.CartItem())
		fmt.Println("Added", service.Name, "to cart.")
		return
	}
	fmt.Println("No event or service with id", id)
}

func printCart(store *cart.Store) {
	items := store.Items()
	if len(items) == 0 {
		fmt.Println("Cart is empty.")
		return
	}
	for _, item := range items {
		fmt.Printf("%-55s x%-3d %s\n", item.ID, item.Quantity, catalog.FormatPrice(item.Subtotal()))
	}
	fmt.Printf("%d item(s), total %s\n", store.ItemCount(), catalog.FormatPrice(store.TotalPrice()))
}

// printAuthError shows the user-facing message for auth failures and falls
// back to the raw error for anything else.
func printAuthError(err error) {
	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		fmt.Println(authErr.Message)
		return
	}
	if errors.Is(err, session.ErrOperationInFlight) {
		fmt.Println("Another request is still running. Please wait.")
		return
	}
	fmt.Println("Error:", err)
}

func printHelp() {
	fmt.Print(`Commands:
  signin <email> <password>            sign in
  signup <email> <password> [name]     create an account
  signout                              sign out
  reset <email>                        send a password reset email
  passwd <new password>                change the current password
  profile <display name>               change the display name
  resend <email>                       resend the verification email
  link <url>                           open a confirmation/recovery deep link
  whoami                               show the current user
  events                               list events
  services                             list consultation services
  add <id>                             add an event ticket or service to the cart
  remove <id>                          remove a cart line
  qty <id> <n>                         change a cart line quantity
  cart                                 show the cart
  checkout                             place the order (requires sign-in)
  quit                                 exit
`)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
