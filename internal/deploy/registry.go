package deploy

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ecr"
	"github.com/aws/aws-sdk-go/service/ecr/ecriface"
)

// RegistryCredential is a decoded ECR authorization token: the registry
// host plus the short-lived username/password pair docker push needs.
type RegistryCredential struct {
	Host     string
	Username string
	Password string
}

// GetRegistryCredential fetches and decodes an authorization token for
// the account's default registry.
func GetRegistryCredential(svc ecriface.ECRAPI) (*RegistryCredential, error) {
	out, err := svc.GetAuthorizationToken(&ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return nil, fmt.Errorf("unable to get ECR authorization token: %w", err)
	}
	if len(out.AuthorizationData) == 0 {
		return nil, errors.New("ECR returned no authorization data")
	}

	data := out.AuthorizationData[0]
	decoded, err := base64.StdEncoding.DecodeString(aws.StringValue(data.AuthorizationToken))
	if err != nil {
		return nil, fmt.Errorf("unable to decode ECR authorization token: %w", err)
	}
	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return nil, errors.New("ECR authorization token is not a username:password pair")
	}

	return &RegistryCredential{
		// the proxy endpoint carries an https:// prefix the docker
		// image reference must not
		Host:     strings.TrimPrefix(aws.StringValue(data.ProxyEndpoint), "https://"),
		Username: username,
		Password: password,
	}, nil
}
