// Command channelname derives and checks realtime channel names and issues
// test tokens. The channel secret is read from --secret or
// REALTIME_CHANNEL_SECRET, and the JWT key from --jwt-secret or JWT_SECRET_KEY.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/internal/realtime/channelname"
	"farmstand-realtime/pkg/jwt"
)

const usage = `Usage: channelname <command> [flags]

Commands:
  generate   derive the name of one channel
  role       list the channels of a workflow role
  validate   check a name against a descriptor
  token      issue a JWT for local testing
`

var errUsage = errors.New("invalid usage")

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "generate":
		err = runGenerate(args[1:], stdout)
	case "role":
		err = runRole(args[1:], stdout)
	case "validate":
		err = runValidate(args[1:], stdout)
	case "token":
		err = runToken(args[1:], stdout)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprint(stderr, usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, color.RedString("error:"), err)
		return 2
	default:
		fmt.Fprintln(stderr, color.RedString("error:"), err)
		return 1
	}
}

type generatorFlags struct {
	secret string
	epoch  string
}

func (g *generatorFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&g.secret, "secret", os.Getenv("REALTIME_CHANNEL_SECRET"), "channel secret")
	fs.StringVar(&g.epoch, "epoch", envOr("REALTIME_SECRET_EPOCH", "1"), "secret epoch")
}

func (g *generatorFlags) generator() (channelname.Generator, error) {
	gen := channelname.New(channelname.Config{Secret: g.secret, Epoch: g.epoch})
	if err := gen.Ready(); err != nil {
		return nil, err
	}
	return gen, nil
}

func parseDescriptor(kind, scope, subject string) (realtime.ChannelDescriptor, error) {
	k, err := realtime.ParseKind(kind)
	if err != nil {
		return realtime.ChannelDescriptor{}, err
	}
	s, err := realtime.ParseScope(scope)
	if err != nil {
		return realtime.ChannelDescriptor{}, err
	}
	return realtime.ChannelDescriptor{Kind: k, Scope: s, SubjectID: subject}, nil
}

func runGenerate(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("generate", pflag.ContinueOnError)
	var gf generatorFlags
	gf.register(fs)
	kind := fs.StringP("kind", "k", "", "channel kind")
	scope := fs.StringP("scope", "s", "", "user-specific, admin-only or global")
	subject := fs.StringP("subject", "u", "", "subject id for user-specific channels")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := parseDescriptor(*kind, *scope, *subject)
	if err != nil {
		return err
	}
	gen, err := gf.generator()
	if err != nil {
		return err
	}
	name, err := gen.GenerateFor(d)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, name)
	return nil
}

func runRole(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("role", pflag.ContinueOnError)
	var gf generatorFlags
	gf.register(fs)
	role := fs.StringP("role", "r", "", "workflow role")
	userID := fs.StringP("user", "u", "", "user id, required for customer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r, err := realtime.ParseRole(*role)
	if err != nil {
		return err
	}
	descs, err := realtime.DescriptorsForRole(r, *userID)
	if err != nil {
		return err
	}
	gen, err := gf.generator()
	if err != nil {
		return err
	}

	label := color.New(color.FgCyan).SprintFunc()
	for _, d := range descs {
		name, err := gen.GenerateFor(d)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%-34s %s\n", label(d.String()), name)
	}
	return nil
}

func runValidate(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	var gf generatorFlags
	gf.register(fs)
	name := fs.StringP("name", "n", "", "channel name to check")
	kind := fs.StringP("kind", "k", "", "channel kind")
	scope := fs.StringP("scope", "s", "", "user-specific, admin-only or global")
	subject := fs.StringP("subject", "u", "", "subject id for user-specific channels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("%w: --name is required", errUsage)
	}

	d, err := parseDescriptor(*kind, *scope, *subject)
	if err != nil {
		return err
	}
	gen, err := gf.generator()
	if err != nil {
		return err
	}

	if !gen.Validate(*name, d.Kind, d.Scope, d.SubjectID) {
		fmt.Fprintln(stdout, color.RedString("invalid"))
		return fmt.Errorf("%s does not match %s", *name, d)
	}
	fmt.Fprintln(stdout, color.GreenString("valid"))
	return nil
}

func runToken(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	secret := fs.String("jwt-secret", os.Getenv("JWT_SECRET_KEY"), "HS256 signing key")
	issuer := fs.String("issuer", envOr("JWT_ISSUER", "farmstand"), "token issuer")
	ttl := fs.Duration("ttl", jwt.DefaultTTL, "token lifetime")
	userID := fs.StringP("user", "u", "", "subject")
	role := fs.StringP("role", "r", string(realtime.RoleCustomer), "workflow role")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return fmt.Errorf("%w: --user is required", errUsage)
	}
	if _, err := realtime.ParseRole(*role); err != nil {
		return err
	}

	mgr, err := jwt.New(jwt.Config{SecretKey: *secret, Issuer: *issuer, TTL: *ttl})
	if err != nil {
		return err
	}
	token, err := mgr.GenerateToken(*userID, *role)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
