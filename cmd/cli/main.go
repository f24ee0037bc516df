package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"todoapp/internal/database"
)

var (
	apiBaseURL  string
	accessToken string
)

type ResponseError map[string]any

func (e ResponseError) Message() string {
	for _, key := range []string{"detail", "error", "message"} {
		if msg, ok := e[key].(string); ok {
			return msg
		}
	}
	raw, _ := json.Marshal(e)
	return string(raw)
}

type TokenPair struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	DeviceID string `json:"device_id"`
}

var apiServiceBase = func() *resty.Client {
	client := resty.New().
		SetBaseURL(apiBaseURL).
		SetHeader("Accept", "application/json").
		SetError(&ResponseError{}).
		OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
			if resp.StatusCode() >= 400 {
				if e, ok := resp.Error().(*ResponseError); ok && e != nil {
					return fmt.Errorf("%s: %s", resp.Status(), e.Message())
				}
				return fmt.Errorf("%s", resp.Status())
			}

			return nil
		})

	if accessToken != "" {
		client.SetAuthToken(accessToken)
	}

	return client
}

var rootCmd = &cobra.Command{
	Use:   "todoctl",
	Short: "Todo API client",
}

var loginCmd = &cobra.Command{
	Use:   "login <username> <password>",
	Short: "Log in and print a token pair",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rememberMe, _ := cmd.Flags().GetBool("remember-me")
		deviceID, _ := cmd.Flags().GetString("device-id")

		body := map[string]any{
			"username":    args[0],
			"password":    args[1],
			"remember_me": rememberMe,
		}
		if deviceID != "" {
			body["device_id"] = deviceID
		}

		resp, err := apiServiceBase().R().
			SetBody(body).
			SetResult(&TokenPair{}).
			Post("/login")
		if err != nil {
			return err
		}

		tokens := resp.Result().(*TokenPair)

		fmt.Println("Access  :", tokens.Access)
		fmt.Println("Refresh :", tokens.Refresh)
		if tokens.DeviceID != "" {
			fmt.Println("Device  :", tokens.DeviceID)
		}
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <device_id> <refresh_token>",
	Short: "Rotate the refresh token of a device",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := apiServiceBase().R().
			SetBody(map[string]string{
				"device_id":     args[0],
				"refresh_token": args[1],
			}).
			SetResult(&TokenPair{}).
			Post("/token/refresh")
		if err != nil {
			return err
		}

		tokens := resp.Result().(*TokenPair)

		fmt.Println("Access  :", tokens.Access)
		fmt.Println("Refresh :", tokens.Refresh)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout <device_id> <refresh_token>",
	Short: "End a device session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := apiServiceBase().R().
			SetBody(map[string]string{
				"device_id":     args[0],
				"refresh_token": args[1],
			}).
			Post("/token/logout")
		if err != nil {
			return err
		}

		fmt.Println("Logged out")
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the current user and its sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := apiServiceBase().R().
			SetResult(&database.User{}).
			Get("/user/me")
		if err != nil {
			return err
		}

		user := resp.Result().(*database.User)

		fmt.Println("User ID  :", user.ID)
		fmt.Println("Username :", user.Username)
		fmt.Println("Email    :", user.Email)
		fmt.Println("Verified :", user.IsVerified)

		resp, err = apiServiceBase().R().
			SetResult(&[]database.Device{}).
			Get("/user/devices")
		if err != nil {
			return err
		}

		fmt.Println("\nDevices")
		for _, d := range *resp.Result().(*[]database.Device) {
			fmt.Println("  - Device :", d.DeviceID)
			fmt.Println("    Expires:", d.ExpiresAt)
		}
		return nil
	},
}

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage groups",
}

var groupCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := apiServiceBase().R().
			SetBody(map[string]string{"name": args[0]}).
			SetResult(&database.GroupRoster{}).
			Post("/groups/create")
		if err != nil {
			return err
		}

		group := resp.Result().(*database.GroupRoster)

		fmt.Println("Group ID :", group.ID)
		fmt.Println("Name     :", group.Name)
		return nil
	},
}

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Manage group invitations",
}

var inviteCreateCmd = &cobra.Command{
	Use:   "create <group_id>",
	Short: "Create an invitation code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		groupID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid group id %q", args[0])
		}

		days, _ := cmd.Flags().GetInt("days")
		maxUses, _ := cmd.Flags().GetInt("max-uses")
		email, _ := cmd.Flags().GetString("email")

		body := map[string]any{
			"group_id":        groupID,
			"expiration_days": days,
			"max_uses":        maxUses,
		}
		if email != "" {
			body["email"] = email
		}

		type Invitation struct {
			Token      string `json:"token"`
			InviteLink string `json:"invite_link"`
		}

		resp, err := apiServiceBase().R().
			SetBody(body).
			SetResult(&Invitation{}).
			Post("/invitations/create")
		if err != nil {
			return err
		}

		inv := resp.Result().(*Invitation)

		fmt.Println("Token :", inv.Token)
		fmt.Println("Link  :", inv.InviteLink)
		return nil
	},
}

var inviteAcceptCmd = &cobra.Command{
	Use:   "accept <token>",
	Short: "Accept an invitation code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		type Accepted struct {
			Message string `json:"message"`
		}

		resp, err := apiServiceBase().R().
			SetResult(&Accepted{}).
			Post("/invitations/" + args[0] + "/accept")
		if err != nil {
			return err
		}

		fmt.Println(resp.Result().(*Accepted).Message)
		return nil
	},
}

func main() {
	loginCmd.Flags().Bool("remember-me", false, "Keep the session for the long lifetime")
	loginCmd.Flags().String("device-id", "", "Device id to bind the session to")

	inviteCreateCmd.Flags().Int("days", 7, "Days until the invitation expires")
	inviteCreateCmd.Flags().Int("max-uses", 1, "How often the code can be redeemed")
	inviteCreateCmd.Flags().String("email", "", "Mail the invitation to this address")

	groupCmd.AddCommand(groupCreateCmd)
	inviteCmd.AddCommand(inviteCreateCmd)
	inviteCmd.AddCommand(inviteAcceptCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(inviteCmd)

	rootCmd.PersistentFlags().StringVarP(&apiBaseURL, "url", "u", "http://localhost:3000/api", "API base URL")
	rootCmd.PersistentFlags().StringVarP(&accessToken, "token", "t", os.Getenv("TODO_ACCESS_TOKEN"), "Access token")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
