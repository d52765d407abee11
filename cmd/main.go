package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ironbell/pressgang/internal/adapter"
	"github.com/ironbell/pressgang/internal/api"
	"github.com/ironbell/pressgang/internal/config"
	"github.com/ironbell/pressgang/internal/handler"
	"github.com/ironbell/pressgang/internal/infrastructure/certificate"
	"github.com/ironbell/pressgang/internal/infrastructure/cloudinit"
	"github.com/ironbell/pressgang/internal/infrastructure/containers"
	"github.com/ironbell/pressgang/internal/infrastructure/disk"
	"github.com/ironbell/pressgang/internal/infrastructure/libvirt"
	"github.com/ironbell/pressgang/internal/infrastructure/proxy"
	"github.com/ironbell/pressgang/internal/readiness"
	"github.com/ironbell/pressgang/internal/routes"
	"github.com/ironbell/pressgang/internal/service"
	"github.com/ironbell/pressgang/internal/stackfile"
	"github.com/ironbell/pressgang/pkg/constants"
	"github.com/ironbell/pressgang/pkg/executor"
	"github.com/ironbell/pressgang/pkg/executor/dockercli"
	pkglibvirt "github.com/ironbell/pressgang/pkg/libvirt"
	"github.com/ironbell/pressgang/pkg/logger"
	"github.com/ironbell/pressgang/pkg/secrets"
	"github.com/ironbell/pressgang/pkg/telemetry"
	"github.com/ironbell/pressgang/pkg/templator"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info("pressgang starting",
		slog.String("log_level", cfg.LogLevel),
		slog.String("log_format", cfg.LogFormat),
		slog.Bool("telemetry_enabled", cfg.TelemetryEnabled),
	)

	var tel *telemetry.Telemetry
	if cfg.TelemetryEnabled {
		var err error
		tel, err = telemetry.Initialize("pressgang")
		if err != nil {
			log.Error("failed to initialize telemetry", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() {
			log.Info("shutting down telemetry")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				log.Error("failed to shutdown telemetry", slog.String("error", err.Error()))
			}
		}()
		log.Info("telemetry initialized")
	} else {
		log.Debug("telemetry disabled")
	}

	go func() {
		sig := <-sigChan
		log.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	app := &cli.App{
		Name:                 "pressgang",
		Usage:                "Provision dockerized site stacks and the machines that run them",
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start HTTP API server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "address",
						Aliases: []string{"a"},
						Usage:   "Server address",
						Value:   ":8080",
					},
				},
				Action: func(cliCtx *cli.Context) error {
					return runServer(ctx, cfg, log, cliCtx.String("address"))
				},
			},
			{
				Name:  "stack",
				Usage: "Manage a site stack defined by a stack file",
				Subcommands: []*cli.Command{
					{
						Name:      "up",
						Usage:     "Bring the stack to a running state",
						ArgsUsage: "<stack file>",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "verify",
								Usage: "Run the acceptance checks after the stack is up",
								Value: false,
							},
						},
						Action: func(cliCtx *cli.Context) error {
							stackService, params, err := initStackCommand(cfg, log, cliCtx.Args().First())
							if err != nil {
								return err
							}

							runID, err := stackService.Up(ctx, params)
							if err != nil {
								return fmt.Errorf("unable to bring stack up: %w", err)
							}
							log.Info("stack is up",
								slog.String("domain", params.Domain),
								slog.String("run_id", runID),
							)

							if cliCtx.Bool("verify") {
								return runVerify(ctx, stackService, params)
							}
							return nil
						},
					},
					{
						Name:      "down",
						Usage:     "Tear the stack down",
						ArgsUsage: "<stack file>",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "remove-data",
								Usage: "Also remove the network and data volumes",
								Value: false,
							},
						},
						Action: func(cliCtx *cli.Context) error {
							stackService, params, err := initStackCommand(cfg, log, cliCtx.Args().First())
							if err != nil {
								return err
							}

							if err := stackService.Down(ctx, params, cliCtx.Bool("remove-data")); err != nil {
								return fmt.Errorf("unable to take stack down: %w", err)
							}
							log.Info("stack is down", slog.String("domain", params.Domain))
							return nil
						},
					},
					{
						Name:      "status",
						Usage:     "Show the state of the stack's containers",
						ArgsUsage: "<stack file>",
						Action: func(cliCtx *cli.Context) error {
							stackService, params, err := initStackCommand(cfg, log, cliCtx.Args().First())
							if err != nil {
								return err
							}

							states, err := stackService.Status(ctx, params)
							if err != nil {
								return fmt.Errorf("unable to query stack status: %w", err)
							}

							response := api.StackStatusResponse{
								Containers: adapter.AdaptContainerStates(states),
							}
							output, err := json.MarshalIndent(response, "", "  ")
							if err != nil {
								return fmt.Errorf("unable to marshal response: %w", err)
							}
							fmt.Println(string(output))
							return nil
						},
					},
					{
						Name:      "verify",
						Usage:     "Run the acceptance checks against a running stack",
						ArgsUsage: "<stack file>",
						Action: func(cliCtx *cli.Context) error {
							stackService, params, err := initStackCommand(cfg, log, cliCtx.Args().First())
							if err != nil {
								return err
							}
							return runVerify(ctx, stackService, params)
						},
					},
					{
						Name:      "render",
						Usage:     "Render the proxy configuration for inspection",
						ArgsUsage: "<stack file>",
						Action: func(cliCtx *cli.Context) error {
							if err := cfg.ValidateStackTemplates(); err != nil {
								return err
							}

							stack, err := loadStackFile(cliCtx.Args().First())
							if err != nil {
								return err
							}
							params := adapter.AdaptStackFile(stack)

							engine := templator.NewEngine()
							if err := engine.LoadTemplate(constants.TemplateNginxSite, cfg.NginxSiteTemplate); err != nil {
								return err
							}

							conf, err := proxy.NewManager(engine, log).RenderSiteConfigBytes(
								proxy.Vars(params.Domain, params.App.Name, params.Proxy.HTTPPort, params.Proxy.HTTPSPort),
							)
							if err != nil {
								return err
							}
							fmt.Print(string(conf))
							return nil
						},
					},
				},
			},
			{
				Name:  "secret",
				Usage: "Credential helpers",
				Subcommands: []*cli.Command{
					{
						Name:  "generate",
						Usage: "Generate a database password",
						Action: func(cliCtx *cli.Context) error {
							password, err := secrets.GeneratePassword()
							if err != nil {
								return fmt.Errorf("failed to generate password: %w", err)
							}
							fmt.Println(password)
							return nil
						},
					},
				},
			},
			{
				Name:  "machine",
				Usage: "Manage development machines",
				Action: func(c *cli.Context) error {
					fmt.Println("use subcommand instead:")
					for _, subcmd := range c.Command.Subcommands {
						fmt.Printf("\t - %s %s %s\n", c.App.Name, c.Command.Name, subcmd.Name)
					}
					return nil
				},
				Subcommands: []*cli.Command{
					{
						Name:      "create",
						Usage:     "Create a development machine",
						ArgsUsage: "<machine config>",
						Action: func(cliCtx *cli.Context) error {
							machineService, err := initMachineService(cfg, log)
							if err != nil {
								return err
							}

							var createRequest api.CreateMachineRequest
							if err := decodeRequestFile(cliCtx.Args().First(), &createRequest); err != nil {
								return err
							}

							log.Info("creating machine", slog.String("name", createRequest.Name))

							if err := machineService.Create(ctx, adapter.AdaptCreateMachine(createRequest)); err != nil {
								return fmt.Errorf("unable to create machine: %w", err)
							}

							log.Info("machine created successfully", slog.String("name", createRequest.Name))
							return nil
						},
					},
					{
						Name:      "delete",
						Usage:     "Destroy a development machine",
						ArgsUsage: "<machine name>",
						Action: func(cliCtx *cli.Context) error {
							machineService, err := initMachineService(cfg, log)
							if err != nil {
								return err
							}

							name := cliCtx.Args().First()
							if name == "" {
								return errors.New("empty machine name")
							}

							if err := machineService.Delete(ctx, service.DeleteMachineParams{Name: name}); err != nil {
								return fmt.Errorf("unable to delete machine: %w", err)
							}

							log.Info("machine deleted successfully", slog.String("name", name))
							return nil
						},
					},
					{
						Name:      "provision",
						Usage:     "Install the container engine on a machine over SSH",
						ArgsUsage: "<provision config>",
						Action: func(cliCtx *cli.Context) error {
							machineService, err := initMachineService(cfg, log)
							if err != nil {
								return err
							}

							var provisionRequest api.ProvisionMachineRequest
							if err := decodeRequestFile(cliCtx.Args().First(), &provisionRequest); err != nil {
								return err
							}

							if provisionRequest.SSH.Host == "" || provisionRequest.SSH.User == "" {
								return errors.New("ssh host and user are required in provision config")
							}

							log.Info("provisioning machine",
								slog.String("name", provisionRequest.Name),
								slog.String("host", provisionRequest.SSH.Host),
							)

							if err := machineService.Provision(ctx, adapter.AdaptProvisionMachine(provisionRequest)); err != nil {
								return fmt.Errorf("unable to provision machine: %w", err)
							}

							log.Info("machine provisioned successfully", slog.String("name", provisionRequest.Name))
							return nil
						},
					},
					{
						Name:      "info",
						Usage:     "Query a development machine",
						ArgsUsage: "<machine name>",
						Action: func(cliCtx *cli.Context) error {
							machineService, err := initMachineService(cfg, log)
							if err != nil {
								return err
							}

							name := cliCtx.Args().First()
							if name == "" {
								return errors.New("empty machine name")
							}

							info, err := machineService.Info(ctx, service.MachineInfoParams{Name: name})
							if err != nil {
								return fmt.Errorf("unable to query machine: %w", err)
							}

							output, err := json.MarshalIndent(info, "", "  ")
							if err != nil {
								return fmt.Errorf("unable to marshal response: %w", err)
							}
							fmt.Println(string(output))
							return nil
						},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// loadStackFile reads the stack definition named on the command line,
// defaulting to stack.yaml in the working directory.
func loadStackFile(path string) (*stackfile.Stack, error) {
	if path == "" {
		path = "stack.yaml"
	}
	return stackfile.Load(path)
}

func decodeRequestFile(path string, target any) error {
	if path == "" {
		return errors.New("empty file path to request config")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(target)
}

// initStackCommand loads the stack file and builds the stack service both
// CLI and server paths share.
func initStackCommand(cfg *config.Config, log *slog.Logger, path string) (*service.StackService, service.StackParams, error) {
	stack, err := loadStackFile(path)
	if err != nil {
		return nil, service.StackParams{}, err
	}

	stackService, err := initStackService(cfg, log)
	if err != nil {
		return nil, service.StackParams{}, err
	}

	return stackService, adapter.AdaptStackFile(stack), nil
}

func initStackService(cfg *config.Config, log *slog.Logger) (*service.StackService, error) {
	if err := cfg.ValidateStackTemplates(); err != nil {
		return nil, err
	}

	engine := templator.NewEngine()

	log.Debug("loading templates")
	if err := engine.LoadTemplate(constants.TemplateNginxSite, cfg.NginxSiteTemplate); err != nil {
		return nil, err
	}

	exec := executor.NewLocal(log)
	docker := dockercli.New(exec, cfg.DockerBinary)

	return service.NewStackService(
		containers.NewManager(docker, log),
		certificate.NewManager(log),
		proxy.NewManager(engine, log),
		docker,
		exec,
		readiness.NewPoller(cfg.ReadinessInterval, cfg.ReadinessTimeout, log),
		log,
	), nil
}

func initMachineService(cfg *config.Config, log *slog.Logger) (*service.MachineService, error) {
	if err := cfg.ValidateMachineTemplates(); err != nil {
		return nil, err
	}

	engine := templator.NewEngine()

	log.Debug("loading templates")

	if err := engine.LoadTemplate(constants.TemplateLibvirtDomain, cfg.LibvirtDomainTemplate); err != nil {
		return nil, err
	}

	if err := engine.LoadTemplate(constants.TemplateCloudInitUserData, cfg.CloudInitUserDataTemplate); err != nil {
		return nil, err
	}

	if cfg.CloudInitMetaDataTemplate != "" {
		if err := engine.LoadTemplate(constants.TemplateCloudInitMetaData, cfg.CloudInitMetaDataTemplate); err != nil {
			return nil, err
		}
	}

	if cfg.CloudInitNetworkConfigTemplate != "" {
		if err := engine.LoadTemplate(constants.TemplateCloudInitNetworkConfig, cfg.CloudInitNetworkConfigTemplate); err != nil {
			return nil, err
		}
	}

	log.Debug("templates loaded successfully")

	connManager, err := pkglibvirt.NewConnectionManager(cfg.LibvirtURI, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize connection manager: %w", err)
	}
	log.Info("connection manager initialized", slog.String("uri", cfg.LibvirtURI))

	return service.NewMachineService(
		disk.NewManager(log),
		cloudinit.NewManager(engine, log),
		libvirt.NewManager(engine, log),
		connManager,
		cfg.ReadinessTimeout,
		cfg.ReadinessInterval,
		log,
	), nil
}

func runVerify(ctx context.Context, stackService *service.StackService, params service.StackParams) error {
	report, err := stackService.Verify(ctx, params)
	if err != nil {
		return fmt.Errorf("unable to verify stack: %w", err)
	}

	response := adapter.AdaptVerifyReport(report)
	output, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal response: %w", err)
	}
	fmt.Println(string(output))

	if !response.Passed {
		return errors.New("stack verification failed")
	}
	return nil
}

// runServer starts the HTTP API server
func runServer(ctx context.Context, cfg *config.Config, log *slog.Logger, address string) error {
	log.Info("initializing HTTP server", slog.String("address", address))

	stackService, err := initStackService(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize stack service: %w", err)
	}

	machineService, err := initMachineService(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize machine service: %w", err)
	}

	stackHandler := handler.NewStack(stackService, log)
	machineHandler := handler.NewMachine(machineService, log)

	router := routes.SetupMux(stackHandler, machineHandler)

	server := &http.Server{
		Addr:        address,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Stack up blocks on database readiness, which can take minutes.
		WriteTimeout: cfg.ReadinessTimeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", slog.String("address", address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrChan:
		return err
	case <-ctx.Done():
		log.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		log.Info("HTTP server stopped")
		return nil
	}
}
