// ABOUTME: Kubernetes profile source reading vendor profiles from labelled ConfigMaps.
// ABOUTME: Runs in-cluster with a kubeconfig fallback for local development.

package cluster

import (
	"context"
	"fmt"
	"sort"

	"github.com/jfeddern/VendorRisk/internal/types"
	"github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	// ProfileLabel marks a ConfigMap as holding a vendor profile
	ProfileLabel = "vendorrisk.io/profile"
	// VendorIDLabel overrides the vendor id, which otherwise is the ConfigMap name
	VendorIDLabel = "vendorrisk.io/vendor-id"

	yamlDataKey = "profile.yaml"
	jsonDataKey = "profile.json"
)

// ConfigMapSource implements ProfileSource for ConfigMaps in one namespace (all when empty)
type ConfigMapSource struct {
	clientset kubernetes.Interface
	namespace string
	logger    *logrus.Logger
}

// NewConfigMapSource connects to the cluster
func NewConfigMapSource(namespace string, logger *logrus.Logger) (*ConfigMapSource, error) {
	var config *rest.Config
	var err error

	// Try in-cluster config first (for pod deployment)
	config, err = rest.InClusterConfig()
	if err != nil {
		logger.Info("In-cluster config not available, trying kubeconfig")
		config, err = clientcmd.BuildConfigFromFlags("", clientcmd.RecommendedHomeFile)
		if err != nil {
			return nil, fmt.Errorf("failed to build kubernetes config: %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	logger.WithField("namespace", namespace).Info("Successfully connected to Kubernetes cluster")
	return NewConfigMapSourceWithClient(clientset, namespace, logger), nil
}

// NewConfigMapSourceWithClient uses an existing clientset
func NewConfigMapSourceWithClient(clientset kubernetes.Interface, namespace string, logger *logrus.Logger) *ConfigMapSource {
	return &ConfigMapSource{
		clientset: clientset,
		namespace: namespace,
		logger:    logger,
	}
}

// Name returns the source name
func (c *ConfigMapSource) Name() string {
	return "kubernetes-configmaps"
}

// ListProfiles decodes every labelled ConfigMap. A ConfigMap whose profile cannot
// be decoded is logged and skipped so one bad document does not hide the rest.
func (c *ConfigMapSource) ListProfiles(ctx context.Context) ([]types.VendorRecord, error) {
	logger := c.logger.WithFields(logrus.Fields{
		"operation": "list_profiles_configmaps",
		"namespace": c.namespace,
	})

	configMaps, err := c.clientset.CoreV1().ConfigMaps(c.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: ProfileLabel + "=true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list configmaps: %w", err)
	}

	logger.WithField("configmap_count", len(configMaps.Items)).Info("Processing profile configmaps")

	seen := make(map[string]string)
	var records []types.VendorRecord
	for _, configMap := range configMaps.Items {
		record, err := profileFromConfigMap(configMap)
		if err != nil {
			logger.WithError(err).WithField("configmap", configMap.Namespace+"/"+configMap.Name).
				Warn("Skipping configmap with unreadable profile")
			continue
		}

		if previous, exists := seen[record.VendorID]; exists {
			logger.WithFields(logrus.Fields{
				"vendor_id": record.VendorID,
				"configmap": configMap.Namespace + "/" + configMap.Name,
				"kept":      previous,
			}).Warn("Skipping configmap with duplicate vendor id")
			continue
		}
		seen[record.VendorID] = configMap.Namespace + "/" + configMap.Name
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].VendorID < records[j].VendorID
	})

	logger.WithField("vendor_count", len(records)).Info("Profile discovery completed")
	return records, nil
}

func profileFromConfigMap(configMap corev1.ConfigMap) (types.VendorRecord, error) {
	vendorID := configMap.Labels[VendorIDLabel]
	if vendorID == "" {
		vendorID = configMap.Name
	}

	var (
		data   string
		format types.Format
	)
	if yamlData, ok := configMap.Data[yamlDataKey]; ok {
		data, format = yamlData, types.FormatYAML
	} else if jsonData, ok := configMap.Data[jsonDataKey]; ok {
		data, format = jsonData, types.FormatJSON
	} else {
		return types.VendorRecord{}, fmt.Errorf("configmap has neither %s nor %s", yamlDataKey, jsonDataKey)
	}

	profile, err := types.DecodeProfile([]byte(data), format)
	if err != nil {
		return types.VendorRecord{}, err
	}

	return types.VendorRecord{VendorID: vendorID, Profile: profile}, nil
}
