package main

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextgraph-core/ng/pkg/broker"
	"github.com/nextgraph-core/ng/pkg/netconn"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Admin-link operations (user directory, invitations)",
}

var adminAddUserCmd = &cobra.Command{
	Use:   "add-user <user-id> <ed25519-pubkey-base64>",
	Short: "Register a user's public key on the broker's admin link",
	Args:  cobra.ExactArgs(2),
	RunE:  runAdminAddUser,
}

var adminListUsersCmd = &cobra.Command{
	Use:   "list-users",
	Short: "List every user registered on the broker",
	Args:  cobra.NoArgs,
	RunE:  runAdminListUsers,
}

func init() {
	adminCmd.AddCommand(adminAddUserCmd)
	adminCmd.AddCommand(adminListUsersCmd)
	rootCmd.AddCommand(adminCmd)
}

func runAdminAddUser(cmd *cobra.Command, args []string) error {
	pub, err := base64.StdEncoding.DecodeString(args[1])
	if err != nil {
		return fmt.Errorf("ngcli: decode public key: %w", err)
	}

	conn, err := dial(netconn.VariantAdmin)
	if err != nil {
		return err
	}
	defer conn.Close()

	payload := broker.EncodeAddUserRequest([]byte(args[0]), pub)
	reply, err := conn.Request(broker.KindAddUser, payload, requestTimeout)
	if err != nil {
		return fmt.Errorf("ngcli: add user: %w", err)
	}
	if reply.Code != netconn.ResultOK {
		return fmt.Errorf("ngcli: add user: %s: %s", reply.Code, string(reply.Payload))
	}
	fmt.Println("user added")
	return nil
}

func runAdminListUsers(cmd *cobra.Command, args []string) error {
	conn, err := dial(netconn.VariantAdmin)
	if err != nil {
		return err
	}
	defer conn.Close()

	reply, err := conn.Request(broker.KindListUsers, nil, requestTimeout)
	if err != nil {
		return fmt.Errorf("ngcli: list users: %w", err)
	}
	if reply.Code != netconn.ResultOK {
		return fmt.Errorf("ngcli: list users: %s: %s", reply.Code, string(reply.Payload))
	}
	ids, err := broker.DecodeUserIDList(reply.Payload)
	if err != nil {
		return fmt.Errorf("ngcli: decode user list: %w", err)
	}
	for _, id := range ids {
		fmt.Println(string(id))
	}
	return nil
}
