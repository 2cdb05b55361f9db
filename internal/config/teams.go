package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Team maps a team label to the project and area path its work items live
// under. WholeProject teams select every work item in the project and skip
// both the area-path filter and the team-settings existence probe.
type Team struct {
	Name         string `yaml:"name"`
	Project      string `yaml:"project"`
	AreaPath     string `yaml:"areaPath,omitempty"`
	WholeProject bool   `yaml:"wholeProject,omitempty"`
}

type teamsFile struct {
	Teams []Team `yaml:"teams"`
}

// LoadTeams reads the team mapping from a YAML file. An empty path (or a
// missing file at the default location) falls back to the compiled-in
// production team set. The result keeps file order so runs are deterministic.
func LoadTeams(path string) ([]Team, error) {
	if path == "" {
		return defaultTeams(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read teams file %s: %w", path, err)
	}

	var tf teamsFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse teams file %s: %w", path, err)
	}
	if len(tf.Teams) == 0 {
		return nil, fmt.Errorf("teams file %s defines no teams", path)
	}
	return tf.Teams, nil
}

func defaultTeams() []Team {
	return []Team{
		{Name: "Team_NABU_RnD_HW_Sustaining", Project: "Packsize Product Development", AreaPath: "Team_NABU_RnD_HW_Sustaining"},
		{Name: "Team_RnD_Design", Project: "Packsize Product Development", AreaPath: "Team_RnD_Design"},
		{Name: "Team_PLC", Project: "Packsize Product Development", AreaPath: "Team_PLC"},
		{Name: "Team_PLC_TechDebt", Project: "Packsize Product Development", AreaPath: "Team_PLC_TechDebt"},
		{Name: "RnD_X5N", Project: "RnD_X5N", WholeProject: true},
	}
}
