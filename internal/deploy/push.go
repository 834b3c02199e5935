package deploy

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
)

// ImageAPI is the slice of the Docker Engine API the deploy step needs.
// *client.Client satisfies it.
type ImageAPI interface {
	ImageTag(ctx context.Context, source, target string) error
	ImagePush(ctx context.Context, ref string, options image.PushOptions) (io.ReadCloser, error)
}

// PushImage tags the locally built image into the registry and pushes
// it, returning the remote reference. The push stream is drained to the
// end because the daemon reports errors mid-stream, after the HTTP
// request has already succeeded.
func PushImage(
	ctx context.Context,
	api ImageAPI,
	cred *RegistryCredential,
	localImage, repository, tag string,
) (string, error) {
	remoteRef := fmt.Sprintf("%s/%s:%s", cred.Host, repository, tag)
	if err := api.ImageTag(ctx, localImage, remoteRef); err != nil {
		return "", fmt.Errorf("unable to tag %s as %s: %w", localImage, remoteRef, err)
	}

	authConfig, err := registryAuth(cred)
	if err != nil {
		return "", err
	}
	stream, err := api.ImagePush(ctx, remoteRef, image.PushOptions{RegistryAuth: authConfig})
	if err != nil {
		return "", fmt.Errorf("unable to push %s: %w", remoteRef, err)
	}
	defer stream.Close()

	if err := drainPushStream(stream); err != nil {
		return "", fmt.Errorf("push of %s failed: %w", remoteRef, err)
	}
	return remoteRef, nil
}

func registryAuth(cred *RegistryCredential) (string, error) {
	payload, err := json.Marshal(registry.AuthConfig{
		Username:      cred.Username,
		Password:      cred.Password,
		ServerAddress: cred.Host,
	})
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(payload), nil
}

func drainPushStream(stream io.Reader) error {
	type pushMessage struct {
		Error string `json:"error"`
	}

	decoder := json.NewDecoder(stream)
	for {
		var msg pushMessage
		if err := decoder.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if msg.Error != "" {
			return errors.New(msg.Error)
		}
	}
}
