package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"go-storefront/cart"
	"go-storefront/dto"
	"go-storefront/models"
)

func registerCommand(opts *rootOptions) *cobra.Command {
	var req dto.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a customer account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := opts.client().Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", user.Username, user.Email)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Username, "username", "", "user name")
	f.StringVar(&req.Email, "email", "", "email address")
	f.StringVar(&req.Password, "password", "", "password, at least 8 characters")
	f.StringVar(&req.Agent, "agent", "", "agent code")
	f.StringVar(&req.Phone, "phone", "", "phone number like 123-456-7890")
	f.StringVar(&req.Address, "address", "", "delivery address")
	for _, name := range []string{"username", "email", "password", "agent", "phone", "address"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func loginCommand(opts *rootOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the token for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := opts.saveToken(resp.Token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", resp.User.Email, resp.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().Logout(cmd.Context()); err != nil {
				return err
			}
			return opts.forgetToken()
		},
	}
}

func productsCommand(opts *rootOptions) *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the catalog, one page at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := opts.client().Products(cmd.Context())
			if err != nil {
				return err
			}
			shown, pages := cart.Page(products, page, size)
			printProducts(cmd.OutOrStdout(), shown)
			fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d\n", page, pages)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&size, "size", 10, "products per page")
	return cmd
}

func searchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search NAME",
		Short: "Find products whose name contains NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := opts.client().Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printProducts(cmd.OutOrStdout(), products)
			return nil
		},
	}
}

func checkoutCommand(opts *rootOptions) *cobra.Command {
	var items []string
	cmd := &cobra.Command{
		Use:     "checkout",
		Short:   "Place an order",
		Example: "  storefront checkout --item 64b7f0c2a1b2c3d4e5f60718=2 --item 64b7f0c2a1b2c3d4e5f60719",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			basket := cart.New()
			for _, item := range items {
				id, qty, err := parseItem(item)
				if err != nil {
					return err
				}
				product, err := c.Product(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("product %s: %w", id, err)
				}
				basket.Add(*product)
				for i := 1; i < qty; i++ {
					basket.Increment(product.ID.Hex())
				}
			}

			out := cmd.OutOrStdout()
			printCart(out, basket)
			order, err := c.PlaceOrder(cmd.Context(), basket.OrderLines())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Order %s placed: %d items, total %s (%s)\n",
				order.ID.Hex(), order.TotalItems, order.TotalPrice.StringFixed(2), order.Status)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&items, "item", nil, "PRODUCT_ID or PRODUCT_ID=QTY, repeatable")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func ordersCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List your orders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, err := opts.client().Orders(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPLACED\tITEMS\tTOTAL\tSTATUS")
			for _, o := range orders {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					o.ID.Hex(), o.CreatedAt.Format("2006-01-02 15:04"), o.TotalItems, o.TotalPrice.StringFixed(2), o.Status)
			}
			return tw.Flush()
		},
	}
}

func productCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage the catalog (admin token required)",
	}

	var req dto.ProductRequest
	var price string
	bind := func(c *cobra.Command) {
		f := c.Flags()
		f.StringVar(&req.ItemCode, "item-code", "", "item code")
		f.StringVar(&req.Name, "name", "", "product name")
		f.StringVar(&req.Description, "description", "", "description")
		f.StringVar(&req.Picture, "picture", "", "picture URL")
		f.StringVar(&price, "price", "", "unit price, e.g. 349.99")
		for _, name := range []string{"item-code", "name", "picture", "price"} {
			_ = c.MarkFlagRequired(name)
		}
	}
	parsePrice := func() error {
		p, err := decimal.NewFromString(price)
		if err != nil {
			return fmt.Errorf("invalid price %q", price)
		}
		req.Price = p
		return nil
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := parsePrice(); err != nil {
				return err
			}
			product, err := opts.client().AddProduct(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", product.Name, product.ID.Hex())
			return nil
		},
	}
	bind(add)

	update := &cobra.Command{
		Use:   "update ID",
		Short: "Replace a product's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := parsePrice(); err != nil {
				return err
			}
			product, err := opts.client().UpdateProduct(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", product.Name, product.ID.Hex())
			return nil
		},
	}
	bind(update)

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().DeleteProduct(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(add, update, del)
	return cmd
}

// parseItem reads "ID" or "ID=QTY".
func parseItem(s string) (string, int, error) {
	id, qtyStr, found := strings.Cut(s, "=")
	id = strings.TrimSpace(id)
	if id == "" {
		return "", 0, fmt.Errorf("invalid item %q", s)
	}
	if !found {
		return id, 1, nil
	}
	qty, err := strconv.Atoi(strings.TrimSpace(qtyStr))
	if err != nil || qty < 1 {
		return "", 0, fmt.Errorf("invalid quantity in %q", s)
	}
	return id, qty, nil
}

func printProducts(w io.Writer, products []models.Product) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tNAME\tPRICE")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID.Hex(), p.ItemCode, p.Name, p.Price.StringFixed(2))
	}
	_ = tw.Flush()
}

func printCart(w io.Writer, c *cart.Cart) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range c.Lines() {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", l.Product.Name, l.Quantity, l.Product.Price.StringFixed(2), l.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t\t%s\n", c.TotalItems(), c.TotalPrice().StringFixed(2))
	_ = tw.Flush()
}
