package main

import (
	"fmt"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/areacode"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/session"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/service/export"
	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "打开浏览器手动登录并保存登录态",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := session.NewStore(a.cfg.Session.StatePath)
			auth := session.InitChromedpLogin(a.cfg, cmd.OutOrStdout(), cmd.InOrStdin(), a.log)
			bak, err := store.Backup(nowFunc())
			if err != nil {
				return err
			}
			if bak != "" {
				a.log.Info("旧登录态已备份", logger.String("backup", bak))
			}
			return session.EnsureLoginState(cmd.Context(), store, auth, true, a.log)
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export [jobs.jsonl]",
		Short: "把职位 JSONL 导出为 CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := ""
			if len(args) == 1 {
				src = args[0]
			} else {
				nationwide := areacode.NewResolver(nil, a.cfg.Area.NationwideAliases).IsNationwide(a.cfg.Crawl.AreaName)
				src = outputFiles(a.cfg, nationwide).Jobs
			}
			dst := out
			if dst == "" {
				dst = export.DefaultCSVPath(src)
			}
			stats, err := export.JobsToCSV(cmd.Context(), src, dst, a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows -> %s (skipped %d)\n", stats.Rows, dst, stats.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "CSV output path (defaults to the input name with .csv)")
	return cmd
}

func newAreaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "area [name]",
		Short: "解析地区名称对应的 jobarea 编码",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.cfg.Crawl.AreaName
			if len(args) == 1 {
				name = args[0]
			}
			resolver, err := loadResolver(a.cfg)
			if err != nil {
				return err
			}
			code, err := resolver.Resolve(name)
			if err != nil {
				printAreaError(cmd.ErrOrStderr(), err)
				return err
			}
			if code == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> 全国 (no jobarea)\n", name)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", name, code)
			return nil
		},
	}
}
