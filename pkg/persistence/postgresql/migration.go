package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id BIGSERIAL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				id_number VARCHAR(255) NOT NULL DEFAULT '',
				status SMALLINT NOT NULL CHECK (status IN (1, 2, 3)),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE UNIQUE INDEX idx_workflows_id_number ON workflows(id_number) WHERE id_number <> '';

			CREATE TABLE workflow_versions (
				id BIGSERIAL PRIMARY KEY,
				workflow_id BIGINT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				status SMALLINT NOT NULL CHECK (status IN (1, 2, 3)),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_versions_workflow_id ON workflow_versions(workflow_id);
			CREATE INDEX idx_workflow_versions_status ON workflow_versions(status);

			CREATE TABLE workflow_stages (
				id BIGSERIAL PRIMARY KEY,
				workflow_version_id BIGINT NOT NULL REFERENCES workflow_versions(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				type VARCHAR(50) NOT NULL CHECK (type IN ('form_submission', 'approvals', 'finished')),
				ordinal_number INT NOT NULL,
				active BOOLEAN NOT NULL DEFAULT true,
				UNIQUE (workflow_version_id, ordinal_number)
			);

			CREATE INDEX idx_workflow_stages_version_id ON workflow_stages(workflow_version_id);

			CREATE TABLE approval_levels (
				id BIGSERIAL PRIMARY KEY,
				workflow_stage_id BIGINT NOT NULL REFERENCES workflow_stages(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				ordinal_number INT NOT NULL,
				active BOOLEAN NOT NULL DEFAULT true,
				UNIQUE (workflow_stage_id, ordinal_number)
			);

			CREATE INDEX idx_approval_levels_stage_id ON approval_levels(workflow_stage_id);

			CREATE TABLE stage_interactions (
				id BIGSERIAL PRIMARY KEY,
				workflow_stage_id BIGINT NOT NULL REFERENCES workflow_stages(id) ON DELETE CASCADE,
				action_code VARCHAR(50) NOT NULL,
				default_transition VARCHAR(50) NOT NULL
			);

			CREATE INDEX idx_stage_interactions_stage_id ON stage_interactions(workflow_stage_id);

			CREATE TABLE assignments (
				id BIGSERIAL PRIMARY KEY,
				workflow_id BIGINT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				status SMALLINT NOT NULL CHECK (status IN (1, 2, 3)),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_assignments_workflow_id ON assignments(workflow_id);
			CREATE INDEX idx_assignments_status ON assignments(status);

			CREATE TABLE approvers (
				id BIGSERIAL PRIMARY KEY,
				assignment_id BIGINT NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
				approval_level_id BIGINT NOT NULL REFERENCES approval_levels(id) ON DELETE CASCADE,
				type VARCHAR(50) NOT NULL CHECK (type IN ('user', 'relationship')),
				identifier BIGINT NOT NULL,
				active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_approvers_assignment_id ON approvers(assignment_id);
			CREATE INDEX idx_approvers_approval_level_id ON approvers(approval_level_id);
			CREATE INDEX idx_approvers_active ON approvers(active);

			CREATE TABLE applications (
				id BIGSERIAL PRIMARY KEY,
				workflow_version_id BIGINT NOT NULL REFERENCES workflow_versions(id),
				assignment_id BIGINT NOT NULL DEFAULT 0,
				user_id BIGINT NOT NULL,
				title VARCHAR(255) NOT NULL,
				current_stage_id BIGINT NOT NULL,
				current_approval_level_id BIGINT,
				is_draft BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				submitted TIMESTAMP WITH TIME ZONE,
				completed TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_applications_version_id ON applications(workflow_version_id);
			CREATE INDEX idx_applications_assignment_id ON applications(assignment_id);
			CREATE INDEX idx_applications_completed ON applications(completed);
			CREATE INDEX idx_applications_current_stage_id ON applications(current_stage_id);

			CREATE TABLE application_activities (
				id BIGSERIAL PRIMARY KEY,
				application_id BIGINT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
				workflow_stage_id BIGINT NOT NULL,
				approval_level_id BIGINT,
				activity_type INT NOT NULL,
				user_id BIGINT,
				timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
				info JSONB NOT NULL DEFAULT '{}'
			);

			CREATE INDEX idx_application_activities_application_id ON application_activities(application_id);
			CREATE INDEX idx_application_activities_type ON application_activities(activity_type);
		`,
	}
}
