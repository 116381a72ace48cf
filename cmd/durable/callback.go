package main

import (
	"github.com/spf13/cobra"
	"github.com/viant/durable/model"
)

func (c *cli) callbackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "callback",
		Short: "Resume a workflow waiting on a callback",
	}
	cmd.PersistentFlags().String("callback-id", "", "callback token")
	_ = cmd.MarkPersistentFlagRequired("callback-id")

	succeed := &cobra.Command{
		Use:     "succeed",
		Short:   "Resume a callback with a result",
		Example: `  durable callback succeed --callback-id ID --result '{"approved_ids":["00003","00005"]}'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			token, _ := cmd.Flags().GetString("callback-id")
			resultArg, _ := cmd.Flags().GetString("result")
			result, err := jsonArgument("result", resultArg)
			if err != nil {
				return err
			}
			srv, err := c.service(ctx)
			if err != nil {
				return err
			}
			ack, err := srv.Succeed(ctx, model.CallbackToken(token), result)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ack)
		},
	}
	succeed.Flags().String("result", "", "JSON result")

	fail := &cobra.Command{
		Use:   "fail",
		Short: "Resume a callback with an error",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			token, _ := cmd.Flags().GetString("callback-id")
			failure := &model.CallbackFailure{}
			failure.Type, _ = cmd.Flags().GetString("error-type")
			failure.Message, _ = cmd.Flags().GetString("error-message")
			failure.Data, _ = cmd.Flags().GetString("error-data")
			srv, err := c.service(ctx)
			if err != nil {
				return err
			}
			ack, err := srv.Fail(ctx, model.CallbackToken(token), failure)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ack)
		},
	}
	fail.Flags().String("error-type", "", "error type, e.g. Rejected")
	fail.Flags().String("error-message", "", "error message")
	fail.Flags().String("error-data", "", "error data")

	cmd.AddCommand(succeed, fail)
	return cmd
}
