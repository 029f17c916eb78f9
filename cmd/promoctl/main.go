// promoctl 是促销码管理命令行工具：批量生成或列出促销码。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gembot-go/internal/config"
	"gembot-go/internal/model"
	"gembot-go/internal/repository"
	"gembot-go/internal/service"
	"gembot-go/pkg/database"
	"gembot-go/pkg/log"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/config.yaml", "配置文件路径")
		kind       = flag.String("type", model.PromoKindVIP, "促销码类型: vip | premium | pro | requests")
		code       = flag.String("code", "", "自定义码值，留空则自动生成")
		days       = flag.Int("days", 0, "套餐有效天数 (premium/pro)")
		requests   = flag.Int("requests", 0, "额外请求数 (requests)")
		uses       = flag.Int("uses", 1, "可兑换次数")
		count      = flag.Int("count", 1, "生成数量")
		list       = flag.Bool("list", false, "列出所有促销码")
	)
	flag.Parse()

	config.Init(*configPath)
	cfg := config.Conf
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	database.InitMySQL(cfg.Database.MySQL.DSN)

	promoRepo := repository.NewPromoCodeRepository(database.DB)
	adminRepo := repository.NewAdminRepository(database.DB)
	userRepo := repository.NewUserRepository(database.DB)
	adminService := service.NewAdminService(adminRepo, promoRepo, userRepo, nil)

	ctx := context.Background()

	if *list {
		codes, err := adminService.ListPromoCodes(ctx)
		if err != nil {
			log.Fatal("促销码查询失败", err)
		}
		for _, p := range codes {
			fmt.Printf("%-24s type=%-8s days=%-4d requests=%-5d uses_left=%d\n",
				p.Code, p.Kind, p.Days, p.Requests, p.UsesLeft)
		}
		return
	}

	if *count > 1 && *code != "" {
		fmt.Fprintln(os.Stderr, "自定义码值不能与 -count 同时使用")
		os.Exit(1)
	}

	for i := 0; i < *count; i++ {
		p, err := adminService.CreatePromoCode(ctx, *kind, *code, *days, *requests, *uses)
		if err != nil {
			log.Fatal("促销码创建失败", err)
		}
		fmt.Println(p.Code)
	}
}
