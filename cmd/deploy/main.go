// The deploy command is the final CI step: it uploads the image built
// earlier in the pipeline to ECR and forces a rolling redeploy of the
// ECS service. It exits zero without deploying when the triggering
// event does not qualify, so skipped deploys never fail the pipeline.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ecr"
	"github.com/aws/aws-sdk-go/service/ecs"
	"github.com/docker/docker/client"

	"github.com/rust-lang/monitorbot/internal/deploy"
)

func main() {
	event := deploy.EventFromEnv()
	rule := deploy.RuleFromEnv()
	if reason := rule.SkipReason(event); reason != "" {
		log.Printf("skipping deploy: %s\n", reason)
		return
	}

	targets := deploy.TargetsFromEnv()
	ctx := context.Background()

	// credentials come from the standard SDK env chain, supplied by
	// the pipeline's secrets
	sess, err := session.NewSession(&aws.Config{Region: aws.String(targets.Region)})
	if err != nil {
		log.Fatal("unable to create AWS session: ", err)
	}

	cred, err := deploy.GetRegistryCredential(ecr.New(sess))
	if err != nil {
		log.Fatal(err)
	}

	docker, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		log.Fatal("unable to create docker client: ", err)
	}
	defer docker.Close()

	remoteRef, err := deploy.PushImage(
		ctx, docker, cred,
		targets.LocalImage, targets.Repository, targets.Tag,
	)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("pushed %s\n", remoteRef)

	if err := deploy.ForceRedeploy(ecs.New(sess), targets.Cluster, targets.Service); err != nil {
		log.Fatal(err)
	}
	log.Printf("forced redeploy of %s/%s\n", targets.Cluster, targets.Service)
}
