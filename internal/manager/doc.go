// Package manager coordinates conversational-bot projects, their training
// jobs and their inference endpoints. It is structured into small files by
// concern:
//
//   - manager.go: Manager facade wiring the components below.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: Mode, Op, Job and Instance.
//   - errors.go: error kinds and predicates (IsValidation, IsNotFound, ...).
//   - projects.go, files.go: ProjectStore, name validation and confined file access.
//   - jobs.go, joblog.go: JobTracker, job logs and log following.
//   - inference.go, ready.go: InferenceRegistry, port allocation and readiness.
//   - chat.go: message proxy to a running endpoint.
//   - backend*.go: execution backends (local process, docker CLI, Engine API).
//   - events.go, eventpub_*.go: lifecycle events.
//   - metrics.go: Prometheus collectors.
//   - sanity.go: toolchain reachability report.
//   - archive.go: LogArchiver hook for finished training logs.
//
// Selecting a backend:
//
//   - UseDocker=false runs the toolchain binary on the host. The binary is
//     RasaBin if executable, else `rasa` on PATH, else $VIRTUAL_ENV/bin/rasa.
//   - UseDocker=true shells out to the docker CLI (DockerBin).
//   - UseDocker=true with ContainerAPI=true talks to the Engine API using the
//     standard DOCKER_HOST environment.
//
// External packages should treat this package as the orchestration layer and
// use the Manager methods only. Component types are exposed for tests and
// tooling and are subject to change.
package manager
