// Command profiles prints the selectable Bedrock models and the id each one
// resolves to under the current inference profile configuration.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Laisky/errors/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/olekukonko/tablewriter"

	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
	"github.com/bedrock-gateway/bedrock-assumerole/dto"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws"
	relaycontroller "github.com/bedrock-gateway/bedrock-assumerole/relay/controller"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("profiles", flag.ContinueOnError)
	fs.SetOutput(w)
	profilesJSON := fs.String("profiles-json", config.InferenceProfilesJSON, "model id to profile id mapping, defaults to APPLICATION_INFERENCE_PROFILES_JSON")
	accountID := fs.String("account", config.InferenceProfileAccountID, "account id of the inference profiles")
	legacyID := fs.String("legacy-profile", config.InferenceProfileID, "profile id applied to models without their own entry")
	region := fs.String("region", config.AWSRegion, "bedrock region")
	if err := fs.Parse(args); err != nil {
		return err
	}

	options, err := aws.ModelOptionsFromJSON(*profilesJSON)
	if err != nil {
		return errors.Wrap(err, "load model options")
	}

	overrides := &dto.CredentialSettings{
		Region:                    *region,
		InferenceProfileAccountID: *accountID,
		InferenceProfileID:        *legacyID,
		InferenceProfilesJSON:     *profilesJSON,
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Model", "Family", "Effective ID"})
	table.SetAutoWrapText(false)
	for _, opt := range options {
		resolved, err := relaycontroller.PreviewModel(overrides, opt.Value)
		if err != nil {
			return errors.Wrapf(err, "resolve %s", opt.Value)
		}
		family := resolved.Family
		if family == "" {
			family = "-"
		}
		table.Append([]string{opt.Name, opt.Value, family, resolved.ModelID})
	}
	table.Render()
	return nil
}
