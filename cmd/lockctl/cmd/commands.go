package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/smartlock/internal/protocol"
	"github.com/oshokin/smartlock/internal/service/client"
)

func newUnlockCmd() *cobra.Command {
	var code, deviceID, at string

	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Redeem an access code.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			frame, err := client.UnlockFrame(code, deviceID, at, time.Now())
			if err != nil {
				return err
			}

			return client.Send(cmd.Context(), options(cmd), frame)
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "access code (0-254)")
	cmd.Flags().StringVar(&deviceID, "device-id", "", "device id: UUID or 16 characters")
	cmd.Flags().StringVar(&at, "at", "", "presented time as yyMMddHHmm (default: now)")

	_ = cmd.MarkFlagRequired("code")      //nolint:errcheck // Flag is defined above.
	_ = cmd.MarkFlagRequired("device-id") //nolint:errcheck // Flag is defined above.

	return cmd
}

func newLockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Close the bolt and wait for confirmation.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.Send(cmd.Context(), options(cmd), protocol.EncodeHeader(protocol.CommandLock))
		},
	}
}

func newUpdateCmd() *cobra.Command {
	var codes, deviceID, expiry string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace the access codes and expiry.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			frame, err := client.UpdateFrame(codes, deviceID, expiry)
			if err != nil {
				return err
			}

			return client.Send(cmd.Context(), options(cmd), frame)
		},
	}

	cmd.Flags().StringVar(&codes, "codes", "", "comma separated access codes, at most 10")
	cmd.Flags().StringVar(&deviceID, "device-id", "", "device id: UUID or 16 characters")
	cmd.Flags().StringVar(&expiry, "expiry", "", "expiry as yyMMddHHmm")

	_ = cmd.MarkFlagRequired("codes")     //nolint:errcheck // Flag is defined above.
	_ = cmd.MarkFlagRequired("device-id") //nolint:errcheck // Flag is defined above.
	_ = cmd.MarkFlagRequired("expiry")    //nolint:errcheck // Flag is defined above.

	return cmd
}

// newHeaderCmd sends a frame that carries only a command byte.
func newHeaderCmd(use, short string, command protocol.Command) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.Send(cmd.Context(), options(cmd), protocol.EncodeHeader(command))
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the lock record.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.Status(cmd.Context(), options(cmd))
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print every result code until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.Watch(cmd.Context(), options(cmd))
		},
	}
}
