package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextgraph-core/ng/pkg/blockstore"
	"github.com/nextgraph-core/ng/pkg/broker"
	"github.com/nextgraph-core/ng/pkg/netconn"
)

var getBlockCmd = &cobra.Command{
	Use:   "get-block <id>",
	Short: "Fetch one block by its content address and print its payload to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetBlock,
}

var putBlockCmd = &cobra.Command{
	Use:   "put-block <file>",
	Short: "Store the contents of a file as a leaf block and print its id",
	Args:  cobra.ExactArgs(1),
	RunE:  runPutBlock,
}

func init() {
	rootCmd.AddCommand(getBlockCmd)
	rootCmd.AddCommand(putBlockCmd)
}

func runGetBlock(cmd *cobra.Command, args []string) error {
	id, err := blockstore.ParseID(args[0])
	if err != nil {
		return fmt.Errorf("ngcli: parse block id: %w", err)
	}

	conn, err := dial(netconn.VariantCore)
	if err != nil {
		return err
	}
	defer conn.Close()

	reply, err := conn.Request(broker.KindGetBlock, broker.EncodeGetBlockRequest(id.Bytes()), requestTimeout)
	if err != nil {
		return fmt.Errorf("ngcli: get block: %w", err)
	}
	if reply.Code != netconn.ResultOK {
		return fmt.Errorf("ngcli: get block: %s: %s", reply.Code, string(reply.Payload))
	}
	blk, err := blockstore.DeserialiseBlock(reply.Payload)
	if err != nil {
		return fmt.Errorf("ngcli: decode block: %w", err)
	}
	_, err = os.Stdout.Write(blk.Payload)
	return err
}

func runPutBlock(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("ngcli: read %s: %w", args[0], err)
	}

	conn, err := dial(netconn.VariantCore)
	if err != nil {
		return err
	}
	defer conn.Close()

	blk := blockstore.Block{Payload: data}
	reply, err := conn.Request(broker.KindPutBlock, blk.Serialise(), requestTimeout)
	if err != nil {
		return fmt.Errorf("ngcli: put block: %w", err)
	}
	if reply.Code != netconn.ResultOK {
		return fmt.Errorf("ngcli: put block: %s: %s", reply.Code, string(reply.Payload))
	}
	id, err := blockstore.IDFromRawBytes(reply.Payload)
	if err != nil {
		return fmt.Errorf("ngcli: decode block id: %w", err)
	}
	fmt.Println(id.String())
	return nil
}
