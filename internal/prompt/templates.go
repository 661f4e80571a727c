package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"DayPulse/config"
	"DayPulse/internal/model"
)

//go:embed templates.yaml
var embeddedTemplates []byte

// TypeTemplate 单个打卡类型的对话模板
type TypeTemplate struct {
	Instructions   string `yaml:"instructions"`
	InitialMessage string `yaml:"initial_message"`
}

// templateSet 模板文件整体结构，启动时解析一次
type templateSet struct {
	Identity               string                  `yaml:"identity"`
	CheckIns               map[string]TypeTemplate `yaml:"check_ins"`
	SpecialInitialMessages map[string]string       `yaml:"special_initial_messages"`
	Tools                  string                  `yaml:"tools"`
	Closing                string                  `yaml:"closing"`
}

var (
	templates     *templateSet
	templatesOnce sync.Once
	templatesErr  error
)

// loadTemplates 解析模板，配置了外部文件路径时优先用外部文件覆盖内置模板
func loadTemplates() (*templateSet, error) {
	templatesOnce.Do(func() {
		data := embeddedTemplates
		if path := config.Cfg.PromptTemplatePath; path != "" {
			fileData, err := os.ReadFile(path)
			if err != nil {
				templatesErr = fmt.Errorf("failed to read prompt templates from %s: %w", path, err)
				return
			}
			data = fileData
		}

		var set templateSet
		if err := yaml.Unmarshal(data, &set); err != nil {
			templatesErr = fmt.Errorf("failed to parse prompt templates: %w", err)
			return
		}
		if len(set.CheckIns) == 0 {
			templatesErr = fmt.Errorf("prompt templates carry no check_ins section")
			return
		}
		templates = &set
	})
	return templates, templatesErr
}

// templateFor 取某类型的模板，未配置的类型回落到 adhoc
func (s *templateSet) templateFor(t model.CheckInType) TypeTemplate {
	if tpl, ok := s.CheckIns[string(t)]; ok {
		return tpl
	}
	return s.CheckIns[string(model.CheckInTypeAdhoc)]
}
