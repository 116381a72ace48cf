package main

import (
	"github.com/spf13/cobra"
	"github.com/viant/durable/model"
)

func (c *cli) startCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a workflow",
		Example: `  durable start --function sales-approval:1 --payload '{"date":"2025-01-15"}'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			function, _ := cmd.Flags().GetString("function")
			payloadArg, _ := cmd.Flags().GetString("payload")
			sync, _ := cmd.Flags().GetBool("sync")
			payload, err := jsonArgument("payload", payloadArg)
			if err != nil {
				return err
			}
			srv, err := c.service(ctx)
			if err != nil {
				return err
			}
			var ack *model.InvocationAck
			if sync {
				identifier, err := model.ParseFunctionIdentifier(function)
				if err != nil {
					return err
				}
				ack, err = srv.Invoke(ctx, &model.InvocationRequest{Function: identifier, Mode: model.InvocationModeRequestResponse, Payload: payload})
				if err != nil {
					return err
				}
			} else if ack, err = srv.StartWorkflow(ctx, function, payload); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ack)
		},
	}
	cmd.Flags().String("function", "", "function name, name:qualifier or ARN")
	cmd.Flags().String("payload", "", "JSON payload")
	cmd.Flags().Bool("sync", false, "wait for the workflow to finish")
	_ = cmd.MarkFlagRequired("function")
	return cmd
}
