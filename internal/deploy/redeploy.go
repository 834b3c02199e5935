package deploy

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ecs"
	"github.com/aws/aws-sdk-go/service/ecs/ecsiface"
)

// ForceRedeploy triggers a rolling redeploy of the service so running
// tasks are replaced with the image just pushed. The service keeps its
// task definition; only the deployment is forced.
func ForceRedeploy(svc ecsiface.ECSAPI, cluster, service string) error {
	_, err := svc.UpdateService(&ecs.UpdateServiceInput{
		Cluster:            aws.String(cluster),
		Service:            aws.String(service),
		ForceNewDeployment: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("unable to redeploy %s/%s: %w", cluster, service, err)
	}
	return nil
}
