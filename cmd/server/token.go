package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NTUCourse-Neo/ncn-backend-v2/pkg/jwt"
)

var tokenAdmin bool

// tokenCmd 签发本地调试用 Token，生产环境由身份提供方签发
var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "签发调试用访问 Token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		var roles []string
		if tokenAdmin {
			roles = append(roles, jwt.RoleAdmin)
		}

		token, err := jwt.NewManager(&cfg.Auth).GenerateAccessToken(args[0], roles...)
		if err != nil {
			return fmt.Errorf("签发 Token 失败: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().BoolVar(&tokenAdmin, "admin", false, "附带管理员角色")
	rootCmd.AddCommand(tokenCmd)
}
