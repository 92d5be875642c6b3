package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"
	"syscall"
)

// 内置默认配置, 可用 --config 指定的文件与 YJS_* 环境变量覆盖
//
//go:embed appconfig/appconfig.json
var appConfig []byte

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(appConfig).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
