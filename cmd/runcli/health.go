package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/wyfcoding/runtracker/pkg/grpcclient"
	"github.com/wyfcoding/runtracker/pkg/logger"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var (
	healthAddr    string
	healthTimeout int
	healthRetries int
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "check the runtracker gRPC health endpoint",
	Long: `
Calls grpc.health.v1.Health/Check against a running runtracker service and
exits non-zero unless the service reports SERVING.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		conn, err := grpcclient.NewClient(grpcclient.ClientConfig{
			Target:         healthAddr,
			ConnTimeout:    healthTimeout,
			RequestTimeout: healthTimeout,
			MaxRetries:     healthRetries,
			RetryDelay:     200,
		})
		if err != nil {
			return err
		}
		defer conn.Close()

		ctx := logger.ContextWithTrace(cmd.Context(), uuid.New().String(), "")
		resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
		if err != nil {
			return errors.Wrapf(err, "health check %s", healthAddr)
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.GetStatus().String())
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			return errors.Newf("service %s is %s", healthAddr, resp.GetStatus())
		}
		return nil
	},
}

func init() {
	f := healthCmd.Flags()
	f.StringVar(&healthAddr, "addr", "localhost:50051", "gRPC address of the service")
	f.IntVar(&healthTimeout, "timeout", 3, "connect and request timeout in seconds")
	f.IntVar(&healthRetries, "retries", 2, "retries while the service is unavailable")
	rootCmd.AddCommand(healthCmd)
}
