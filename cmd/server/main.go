package main

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"

	"todoapp/internal/auth"
	"todoapp/internal/config"
	"todoapp/internal/database"
	"todoapp/internal/handlers"
	"todoapp/internal/mail"
	"todoapp/internal/platform/account"
	"todoapp/internal/platform/device"
	"todoapp/internal/platform/group"
	"todoapp/internal/platform/invitation"
	"todoapp/internal/platform/lockout"
	"todoapp/internal/platform/password"
	"todoapp/internal/platform/todo"
	"todoapp/internal/platform/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal(err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal(err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	var mailer mail.Mailer = mail.LogMailer{}
	if cfg.MailEnabled() {
		mailer = mail.NewMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunAPIBase)
	}
	composer := mail.Composer{
		From:         cfg.MailFrom,
		FrontendURL:  cfg.FrontendURL,
		UseTemplates: cfg.MailTemplates,
	}

	settings := cfg.Auth()
	issuer := auth.NewIssuer(settings)
	groups := group.NewService(db)

	h := &handlers.Handler{
		Accounts: account.NewService(account.Deps{
			Users:   user.NewService(db),
			Devices: device.NewRegistry(db, issuer, settings),
			Lockout: lockout.NewGuard(rdb, settings),
			Issuer:  issuer,
			Tokens:  auth.NewOneTimeTokens(settings),
			Hasher: password.NewHasher(password.Params{
				Memory:  cfg.Argon2Memory,
				Time:    cfg.Argon2Time,
				Threads: cfg.Argon2Threads,
			}),
			Policy:   password.DefaultChain(settings.PasswordMinLength),
			Mailer:   mailer,
			Composer: composer,
		}),
		Groups:          groups,
		Invitations:     invitation.NewService(db, groups, mailer, composer),
		Todos:           todo.NewService(db, groups),
		LockoutCooldown: settings.LockoutCooldown,
	}

	appConfig := cfg.HTTP()
	appConfig.ErrorHandler = handlers.ErrorHandler
	app := fiber.New(appConfig)

	app.Use(compress.New())
	app.Use(helmet.New())
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(healthcheck.New(healthcheck.Config{
		ReadinessProbe: func(c *fiber.Ctx) bool {
			return rdb.Ping(c.UserContext()).Err() == nil
		},
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))

	h.Mount(app.Group("/api"))

	app.Use(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})

	log.Fatal(app.Listen(fmt.Sprintf(":%d", cfg.ServerPort)))
}
