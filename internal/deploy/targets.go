package deploy

import "os"

// envPrefix scopes the deploy tool's own variables apart from the
// runner-provided GITHUB_* ones.
const envPrefix = "MONITORBOT_DEPLOY_"

// Targets names everything the deploy step touches. The defaults are
// the production targets; CI overrides nothing, test environments
// override everything.
type Targets struct {
	// Region is the AWS region holding the registry and the cluster.
	Region string
	// Repository is the ECR repository the image is pushed to.
	Repository string
	// Tag is the remote image tag.
	Tag string
	// LocalImage is the image reference built earlier in the pipeline.
	LocalImage string
	// Cluster and Service identify the ECS service to redeploy.
	Cluster string
	Service string
}

func TargetsFromEnv() Targets {
	return Targets{
		Region:     getEnvOrDefault("REGION", "us-west-1"),
		Repository: getEnvOrDefault("REPOSITORY", "monitorbot"),
		Tag:        getEnvOrDefault("TAG", "latest"),
		LocalImage: getEnvOrDefault("LOCAL_IMAGE", "monitorbot:latest"),
		Cluster:    getEnvOrDefault("CLUSTER", "rust-ecs-prod"),
		Service:    getEnvOrDefault("SERVICE", "monitorbot"),
	}
}

// RuleFromEnv builds the deploy gate, defaulting to the canonical
// repository and its principal branch.
func RuleFromEnv() Rule {
	return Rule{
		Repository: getEnvOrDefault("GITHUB_REPOSITORY", "rust-lang/monitorbot"),
		Branch:     getEnvOrDefault("BRANCH", "master"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	value, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return defaultValue
	}
	return value
}
